package reduce

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
)

// syntheticVectors returns n unit-scale vectors in dim dimensions forming two
// separated blobs with small noise.
func syntheticVectors(n, dim int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, n)
	for i := range vectors {
		v := make([]float32, dim)
		center := float32(0)
		if i >= n/2 {
			center = 5
		}
		for d := range v {
			v[d] = center + float32(rng.NormFloat64()*0.1)
		}
		vectors[i] = v
	}
	return vectors
}

func TestReduceProducesFiniteLayout(t *testing.T) {
	vectors := syntheticVectors(20, 8, 7)
	r := NewReducer()
	coords, err := r.Reduce(context.Background(), vectors, Options{TargetDim: 2, Neighbors: 5, Iterations: 100}, nil)
	if err != nil {
		t.Fatalf("Reduce error: %v", err)
	}
	if len(coords) != 20 {
		t.Fatalf("expected 20 points, got %d", len(coords))
	}
	for i, p := range coords {
		if len(p) != 2 {
			t.Fatalf("point %d has %d dims", i, len(p))
		}
		for _, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("point %d has non-finite coordinate %v", i, v)
			}
		}
	}
	if err := ValidateLayout(coords); err != nil {
		t.Errorf("layout should pass validation: %v", err)
	}
}

func TestReduceDeterministicWithSeed(t *testing.T) {
	vectors := syntheticVectors(15, 6, 3)
	r := NewReducer()
	opts := Options{TargetDim: 2, Neighbors: 4, Iterations: 50, Seed: 42}
	a, err := r.Reduce(context.Background(), vectors, opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Reduce(context.Background(), vectors, opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		for d := range a[i] {
			if a[i][d] != b[i][d] {
				t.Fatalf("same seed should give identical layouts (point %d dim %d)", i, d)
			}
		}
	}
}

func TestReduceEmptyInput(t *testing.T) {
	r := NewReducer()
	coords, err := r.Reduce(context.Background(), nil, Options{}, nil)
	if err != nil {
		t.Fatalf("empty input should not error: %v", err)
	}
	if coords != nil {
		t.Errorf("empty input should yield nil, got %d points", len(coords))
	}
}

func TestReduceProgressCallback(t *testing.T) {
	vectors := syntheticVectors(12, 4, 9)
	r := NewReducer()
	var fractions []float64
	_, err := r.Reduce(context.Background(), vectors, Options{TargetDim: 2, Neighbors: 3, Iterations: 100}, func(f float64) {
		fractions = append(fractions, f)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(fractions) == 0 {
		t.Fatal("progress callback should fire")
	}
	for i := 1; i < len(fractions); i++ {
		if fractions[i] < fractions[i-1] {
			t.Error("progress should be monotonic")
		}
	}
	if fractions[len(fractions)-1] != 1.0 {
		t.Errorf("final progress should be 1.0, got %f", fractions[len(fractions)-1])
	}
}

func TestReduceCancellation(t *testing.T) {
	vectors := syntheticVectors(30, 8, 5)
	r := NewReducer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Reduce(ctx, vectors, Options{TargetDim: 2}, nil); err == nil {
		t.Error("cancelled context should abort reduction")
	}
}

func TestExactAndApproximateNeighborsAgreeRoughly(t *testing.T) {
	vectors := syntheticVectors(100, 8, 11)
	exact := nearestNeighbors(vectors, 5, 1000, 1)
	approx := nearestNeighbors(vectors, 5, 10, 1) // force HNSW path
	// Approximate recall against exact should be well above chance. The two
	// blobs are 50 points each, so matching the blob is the important part.
	var overlap, total int
	for i := range exact.ids {
		exactSet := map[int]bool{}
		for _, id := range exact.ids[i] {
			exactSet[id] = true
		}
		for _, id := range approx.ids[i] {
			total++
			if exactSet[id] {
				overlap++
			}
		}
	}
	if total == 0 {
		t.Fatal("no approximate neighbors produced")
	}
	recall := float64(overlap) / float64(total)
	if recall < 0.5 {
		t.Errorf("approximate recall too low: %f", recall)
	}
}

func TestValidateLayoutFailureModes(t *testing.T) {
	if err := ValidateLayout([][]float64{{1, 2}, {math.NaN(), 0}}); !errors.Is(err, ErrNonFinite) {
		t.Errorf("expected ErrNonFinite, got %v", err)
	}
	if err := ValidateLayout([][]float64{{1, 2}, {math.Inf(1), 0}}); !errors.Is(err, ErrNonFinite) {
		t.Errorf("expected ErrNonFinite for Inf, got %v", err)
	}
	if err := ValidateLayout([][]float64{{1, 2}, {1e9, 0}}); !errors.Is(err, ErrExtremeValues) {
		t.Errorf("expected ErrExtremeValues, got %v", err)
	}
	collapsed := [][]float64{{1, 1}, {1, 1}, {1, 1}}
	if err := ValidateLayout(collapsed); !errors.Is(err, ErrCollapsedLayout) {
		t.Errorf("expected ErrCollapsedLayout, got %v", err)
	}
	ok := [][]float64{{0, 0}, {1, 1}, {2, 0}}
	if err := ValidateLayout(ok); err != nil {
		t.Errorf("healthy layout should pass: %v", err)
	}
	if err := ValidateLayout(nil); err != nil {
		t.Errorf("empty layout should pass: %v", err)
	}
}

func TestHNSWSearchFindsInsertedPoints(t *testing.T) {
	vectors := syntheticVectors(50, 4, 21)
	g := newHNSW(8, 32, 1)
	for _, v := range vectors {
		g.insert(v)
	}
	found := g.search(vectors[3], 1)
	if len(found) == 0 {
		t.Fatal("search should return results")
	}
	if found[0].node != 3 {
		t.Errorf("nearest neighbor of an inserted point should be itself, got %d", found[0].node)
	}
}
