package reduce

import (
	"errors"
	"fmt"
	"math"
)

// Distinct layout failure modes. A degenerate layout must never be returned
// as a silent success, because clustering on it is meaningless.
var (
	ErrNonFinite       = errors.New("layout contains non-finite coordinates")
	ErrExtremeValues   = errors.New("layout contains extreme coordinate magnitudes")
	ErrCollapsedLayout = errors.New("layout collapsed to near-zero variance")
)

// validateVariance is the variance floor below which a layout counts as collapsed.
const validateVariance = 1e-6

// ValidateLayout checks a finished layout for NaN/Infinity, extreme
// magnitudes, and near-zero variance, each surfaced as a distinct error.
func ValidateLayout(coords [][]float64) error {
	if len(coords) == 0 {
		return nil
	}
	dim := len(coords[0])
	means := make([]float64, dim)
	for _, p := range coords {
		for d, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return ErrNonFinite
			}
			if math.Abs(v) > coordClamp {
				return fmt.Errorf("%w: |%g| > %g", ErrExtremeValues, v, coordClamp)
			}
			means[d] += v
		}
	}
	if len(coords) < 2 {
		return nil
	}
	for d := range means {
		means[d] /= float64(len(coords))
	}
	var totalVar float64
	for _, p := range coords {
		for d, v := range p {
			diff := v - means[d]
			totalVar += diff * diff
		}
	}
	totalVar /= float64(len(coords) * dim)
	if totalVar < validateVariance {
		return ErrCollapsedLayout
	}
	return nil
}
