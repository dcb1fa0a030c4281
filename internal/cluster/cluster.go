// Package cluster partitions a low-dimensional layout into density clusters
// with membership probabilities and keyword summaries.
package cluster

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/chizu/internal/models"
	"github.com/hyperjump/chizu/pkg/utils"
)

// Options controls one clustering run.
type Options struct {
	// MinClusterSize is the smallest component that counts as a cluster.
	MinClusterSize int
	// MinSamples is the neighbor count used for core distances. Defaults to
	// MinClusterSize.
	MinSamples int
}

func (o *Options) applyDefaults() {
	if o.MinClusterSize <= 0 {
		o.MinClusterSize = 5
	}
	if o.MinSamples <= 0 {
		o.MinSamples = o.MinClusterSize
	}
}

// Result holds labels and probabilities, parallel to the input points.
// Label models.NoiseLabel marks outliers.
type Result struct {
	Labels        []int
	Probabilities []float64
	Warnings      []string
}

// Clusterer runs density-based clustering on a projected layout. It operates
// only on the clustering-dimensional projection, never raw embeddings.
type Clusterer struct {
	logger *zap.Logger
}

// ClustererOption configures a Clusterer.
type ClustererOption func(*Clusterer)

// WithLogger sets a logger for stage progress.
func WithLogger(l *zap.Logger) ClustererOption {
	return func(c *Clusterer) { c.logger = l }
}

// NewClusterer creates a clusterer.
func NewClusterer(opts ...ClustererOption) *Clusterer {
	c := &Clusterer{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cluster partitions points. Empty input yields empty outputs. Input smaller
// than MinClusterSize yields all-noise labels with probability 0 without
// invoking the algorithm. progress, when non-nil, receives a fraction in
// (0,1] between phases.
func (c *Clusterer) Cluster(ctx context.Context, points [][]float64, opts Options, progress func(float64)) (*Result, error) {
	opts.applyDefaults()
	n := len(points)
	if n == 0 {
		return &Result{Labels: []int{}, Probabilities: []float64{}}, nil
	}
	if n < opts.MinClusterSize {
		labels := make([]int, n)
		probs := make([]float64, n)
		for i := range labels {
			labels[i] = models.NoiseLabel
		}
		return &Result{Labels: labels, Probabilities: probs}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("clustering cancelled: %w", err)
	}

	core := coreDistances(points, opts.MinSamples)
	if progress != nil {
		progress(0.3)
	}
	mst := minimumSpanningTree(points, core)
	if progress != nil {
		progress(0.6)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("clustering cancelled: %w", err)
	}

	labels := extractClusters(mst, n, opts.MinClusterSize)
	probs := memberProbabilities(labels, core)
	if progress != nil {
		progress(1.0)
	}

	result := &Result{Labels: labels, Probabilities: probs}
	if c.logger != nil {
		counts := map[int]int{}
		for _, l := range labels {
			counts[l]++
		}
		c.logger.Debug("clustering finished",
			zap.Int("points", n),
			zap.Int("clusters", len(counts)-boolToInt(counts[models.NoiseLabel] > 0)),
			zap.Int("noise", counts[models.NoiseLabel]),
		)
	}
	return result, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// coreDistances returns, per point, the distance to its minSamples-th nearest
// neighbor.
func coreDistances(points [][]float64, minSamples int) []float64 {
	n := len(points)
	k := minSamples
	if k >= n {
		k = n - 1
	}
	core := make([]float64, n)
	dists := make([]float64, 0, n-1)
	for i := 0; i < n; i++ {
		dists = dists[:0]
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			dists = append(dists, math.Sqrt(utils.SquaredL2(points[i], points[j])))
		}
		sort.Float64s(dists)
		if k >= 1 {
			core[i] = dists[k-1]
		}
	}
	return core
}

// mstEdge is one edge of the mutual-reachability minimum spanning tree.
type mstEdge struct {
	a, b   int
	weight float64
}

// minimumSpanningTree builds the MST over mutual reachability distances
// max(core[a], core[b], d(a,b)) using Prim's algorithm.
func minimumSpanningTree(points [][]float64, core []float64) []mstEdge {
	n := len(points)
	inTree := make([]bool, n)
	bestDist := make([]float64, n)
	bestFrom := make([]int, n)
	for i := range bestDist {
		bestDist[i] = math.Inf(1)
		bestFrom[i] = -1
	}
	inTree[0] = true
	curr := 0
	edges := make([]mstEdge, 0, n-1)

	for len(edges) < n-1 {
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}
			d := math.Sqrt(utils.SquaredL2(points[curr], points[j]))
			reach := math.Max(d, math.Max(core[curr], core[j]))
			if reach < bestDist[j] {
				bestDist[j] = reach
				bestFrom[j] = curr
			}
		}
		next := -1
		for j := 0; j < n; j++ {
			if !inTree[j] && (next < 0 || bestDist[j] < bestDist[next]) {
				next = j
			}
		}
		if next < 0 {
			break
		}
		inTree[next] = true
		edges = append(edges, mstEdge{a: bestFrom[next], b: next, weight: bestDist[next]})
		curr = next
	}
	return edges
}

// extractClusters cuts the MST at a density threshold and labels connected
// components of at least minClusterSize points; everything else is noise.
// The threshold is the mean edge weight plus one standard deviation, which
// separates within-cluster edges from the long bridges between clusters.
func extractClusters(mst []mstEdge, n int, minClusterSize int) []int {
	labels := make([]int, n)
	for i := range labels {
		labels[i] = models.NoiseLabel
	}
	if len(mst) == 0 {
		return labels
	}

	var mean float64
	for _, e := range mst {
		mean += e.weight
	}
	mean /= float64(len(mst))
	var variance float64
	for _, e := range mst {
		d := e.weight - mean
		variance += d * d
	}
	variance /= float64(len(mst))
	threshold := mean + math.Sqrt(variance)

	uf := newUnionFind(n)
	for _, e := range mst {
		if e.weight <= threshold {
			uf.union(e.a, e.b)
		}
	}

	sizes := map[int]int{}
	for i := 0; i < n; i++ {
		sizes[uf.find(i)]++
	}
	// Components are numbered in first-appearance order for determinism.
	next := 0
	labelOf := map[int]int{}
	for i := 0; i < n; i++ {
		root := uf.find(i)
		if sizes[root] < minClusterSize {
			continue
		}
		if _, ok := labelOf[root]; !ok {
			labelOf[root] = next
			next++
		}
		labels[i] = labelOf[root]
	}
	return labels
}

// memberProbabilities scores how central each labeled point is within its
// cluster: the point with the smallest core distance gets 1, the largest
// gets its relative share. Noise points get 0.
func memberProbabilities(labels []int, core []float64) []float64 {
	maxCore := map[int]float64{}
	minCore := map[int]float64{}
	for i, l := range labels {
		if l == models.NoiseLabel {
			continue
		}
		if _, ok := maxCore[l]; !ok {
			maxCore[l] = core[i]
			minCore[l] = core[i]
			continue
		}
		maxCore[l] = math.Max(maxCore[l], core[i])
		minCore[l] = math.Min(minCore[l], core[i])
	}
	probs := make([]float64, len(labels))
	for i, l := range labels {
		if l == models.NoiseLabel {
			probs[i] = 0
			continue
		}
		span := maxCore[l] - minCore[l]
		if span <= 0 {
			probs[i] = 1
			continue
		}
		probs[i] = clampProb(1 - (core[i]-minCore[l])/span*0.5)
	}
	return probs
}

func clampProb(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Max(0, math.Min(1, p))
}
