package reduce

import (
	"context"
	"fmt"
	"math"
	"math/rand"
)

const (
	// gradClamp bounds each per-dimension gradient contribution.
	gradClamp = 4.0
	// coordClamp bounds coordinate magnitude; non-finite updates reset to 0.
	coordClamp = 1000.0
	// negativeSamples is the number of repulsion samples per edge per iteration.
	negativeSamples = 5
	// progressEvery controls how often the progress callback fires.
	progressEvery = 25
)

// curveParams are the (a, b) coefficients of the low-dimensional membership
// curve 1/(1 + a*d^(2b)). Precomputed for the two minDist values the pipeline
// uses; intermediate values snap to the nearer one.
func curveParams(minDist float64) (float64, float64) {
	if minDist < 0.05 {
		return 1.93, 0.79 // tight layout for clustering
	}
	return 1.58, 0.90 // spread layout for visualization
}

// optimizeLayout places points in targetDim space so that graph-connected
// points attract and sampled pairs repel. The learning rate decays linearly
// across the iteration budget so the optimization always terminates; every
// coordinate update is kept finite.
func optimizeLayout(
	ctx context.Context,
	n int,
	edges []edge,
	targetDim int,
	minDist float64,
	iterations int,
	seed int64,
	progress func(float64),
) ([][]float64, error) {
	rng := rand.New(rand.NewSource(seed))
	coords := make([][]float64, n)
	for i := range coords {
		coords[i] = make([]float64, targetDim)
		for d := range coords[i] {
			coords[i][d] = rng.Float64()*20 - 10
		}
	}
	if n == 0 || len(edges) == 0 {
		return coords, nil
	}

	a, b := curveParams(minDist)

	for iter := 0; iter < iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("layout optimization cancelled: %w", err)
		}
		alpha := 1.0 - float64(iter)/float64(iterations)

		for _, e := range edges {
			// Sample each edge proportionally to its weight.
			if rng.Float64() > e.weight {
				continue
			}
			attract(coords[e.i], coords[e.j], a, b, alpha)
			for s := 0; s < negativeSamples; s++ {
				other := rng.Intn(n)
				if other == e.i || other == e.j {
					continue
				}
				repel(coords[e.i], coords[other], a, b, alpha)
			}
		}

		for i := range coords {
			clampCoords(coords[i])
		}
		if progress != nil && (iter%progressEvery == 0 || iter == iterations-1) {
			progress(float64(iter+1) / float64(iterations))
		}
	}
	return coords, nil
}

// attract moves x and y toward each other along the membership-curve gradient.
func attract(x, y []float64, a, b, alpha float64) {
	d2 := 0.0
	for i := range x {
		diff := x[i] - y[i]
		d2 += diff * diff
	}
	if d2 <= 0 {
		return
	}
	coeff := (-2.0 * a * b * math.Pow(d2, b-1.0)) / (1.0 + a*math.Pow(d2, b))
	for i := range x {
		g := clampGrad(coeff * (x[i] - y[i]))
		x[i] += alpha * g
		y[i] -= alpha * g
	}
}

// repel pushes x away from y.
func repel(x, y []float64, a, b, alpha float64) {
	d2 := 0.0
	for i := range x {
		diff := x[i] - y[i]
		d2 += diff * diff
	}
	coeff := (2.0 * b) / ((0.001 + d2) * (1.0 + a*math.Pow(d2, b)))
	for i := range x {
		diff := x[i] - y[i]
		var g float64
		if diff != 0 {
			g = clampGrad(coeff * diff)
		} else {
			g = gradClamp // coincident points get a fixed push apart
		}
		x[i] += alpha * g
	}
}

func clampGrad(g float64) float64 {
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return 0
	}
	if g > gradClamp {
		return gradClamp
	}
	if g < -gradClamp {
		return -gradClamp
	}
	return g
}

// clampCoords keeps every coordinate finite and bounded. Non-finite values
// clamp to zero rather than propagate.
func clampCoords(x []float64) {
	for i, v := range x {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			x[i] = 0
		case v > coordClamp:
			x[i] = coordClamp
		case v < -coordClamp:
			x[i] = -coordClamp
		}
	}
}
