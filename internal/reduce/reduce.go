// Package reduce builds an approximate k-nearest-neighbor graph over
// high-dimensional vectors and optimizes a low-dimensional layout on it.
package reduce

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Options controls one reduction run.
type Options struct {
	// TargetDim is the output dimensionality (15 for clustering, 2 for
	// visualization).
	TargetDim int
	// Neighbors is the k of the neighbor graph.
	Neighbors int
	// MinDist governs the attraction/repulsion balance: near 0 gives tight,
	// separable clusters; larger values give readable spread.
	MinDist float64
	// Iterations is the optimization budget. Defaults to 500.
	Iterations int
	// ExactThreshold is the point count above which the approximate neighbor
	// index replaces exact all-pairs search. Defaults to 2048.
	ExactThreshold int
	// Seed makes runs reproducible. Zero means seed 1.
	Seed int64
}

func (o *Options) applyDefaults() {
	if o.TargetDim <= 0 {
		o.TargetDim = 15
	}
	if o.Neighbors <= 0 {
		o.Neighbors = 15
	}
	if o.Iterations <= 0 {
		o.Iterations = 500
	}
	if o.ExactThreshold <= 0 {
		o.ExactThreshold = 2048
	}
	if o.Seed == 0 {
		o.Seed = 1
	}
}

// Reducer runs two-phase dimensionality reduction: neighbor graph
// construction followed by gradient layout optimization.
type Reducer struct {
	logger *zap.Logger
}

// ReducerOption configures a Reducer.
type ReducerOption func(*Reducer)

// WithLogger sets a logger for stage progress.
func WithLogger(l *zap.Logger) ReducerOption {
	return func(r *Reducer) { r.logger = l }
}

// NewReducer creates a reducer.
func NewReducer(opts ...ReducerOption) *Reducer {
	r := &Reducer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reduce projects vectors into opts.TargetDim dimensions. progress, when
// non-nil, receives a fraction in (0,1] at regular interior checkpoints. The
// returned layout has passed validation; a degenerate layout is an error,
// never a silent success.
func (r *Reducer) Reduce(ctx context.Context, vectors [][]float32, opts Options, progress func(float64)) ([][]float64, error) {
	opts.applyDefaults()
	n := len(vectors)
	if n == 0 {
		return nil, nil
	}
	for i, v := range vectors {
		if len(v) != len(vectors[0]) {
			return nil, fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(v), len(vectors[0]))
		}
	}
	if r.logger != nil {
		r.logger.Debug("building neighbor graph",
			zap.Int("points", n),
			zap.Int("neighbors", opts.Neighbors),
			zap.Bool("approximate", n > opts.ExactThreshold),
		)
	}

	nl := nearestNeighbors(vectors, opts.Neighbors, opts.ExactThreshold, opts.Seed)
	edges := buildEdges(nl)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("reduction cancelled: %w", err)
	}

	if r.logger != nil {
		r.logger.Debug("optimizing layout",
			zap.Int("edges", len(edges)),
			zap.Int("target_dim", opts.TargetDim),
			zap.Float64("min_dist", opts.MinDist),
		)
	}
	coords, err := optimizeLayout(ctx, n, edges, opts.TargetDim, opts.MinDist, opts.Iterations, opts.Seed, progress)
	if err != nil {
		return nil, err
	}
	if err := ValidateLayout(coords); err != nil {
		return nil, fmt.Errorf("layout validation failed: %w", err)
	}
	return coords, nil
}
