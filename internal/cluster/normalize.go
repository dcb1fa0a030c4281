package cluster

import (
	"fmt"
	"math"

	"github.com/hyperjump/chizu/internal/models"
)

// Normalize corrects label/probability arrays against the expected point
// count. Short arrays are padded with the noise sentinel (labels) or a
// defaulted probability; long arrays are truncated. Every correction is
// reported as a warning, never applied silently. NaN probabilities count as
// missing and are defaulted: 0.5 for noise points, 1.0 for labeled points.
// All probabilities are clamped to [0,1].
//
// The 0.5/1.0 defaulting rule is preserved for compatibility; it is a
// heuristic, not a statistically justified estimate.
func Normalize(labels []int, probs []float64, pointCount int) ([]int, []float64, []string) {
	var warnings []string

	if len(labels) != pointCount {
		warnings = append(warnings, fmt.Sprintf("label count %d != point count %d, corrected with noise sentinel", len(labels), pointCount))
		labels = resizeLabels(labels, pointCount)
	}
	if len(probs) != pointCount {
		warnings = append(warnings, fmt.Sprintf("probability count %d != point count %d, corrected with defaults", len(probs), pointCount))
		probs = resizeProbs(probs, pointCount)
	}

	for i := range probs {
		if math.IsNaN(probs[i]) {
			if labels[i] == models.NoiseLabel {
				probs[i] = 0.5
			} else {
				probs[i] = 1.0
			}
			continue
		}
		probs[i] = math.Max(0, math.Min(1, probs[i]))
	}
	return labels, probs, warnings
}

func resizeLabels(labels []int, n int) []int {
	out := make([]int, n)
	for i := range out {
		if i < len(labels) {
			out[i] = labels[i]
		} else {
			out[i] = models.NoiseLabel
		}
	}
	return out
}

func resizeProbs(probs []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i < len(probs) {
			out[i] = probs[i]
		} else {
			out[i] = math.NaN() // filled by the defaulting rule
		}
	}
	return out
}
