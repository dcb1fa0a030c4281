package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/chizu/pkg/utils"
)

// MockEncoder is a deterministic encoder for tests and offline runs. It
// returns a fixed-dimension unit vector derived from the text hash so that
// the same text always gets the same embedding.
type MockEncoder struct {
	dimensions int
}

// NewMockEncoder returns an encoder producing deterministic embeddings of the
// given dimension (default 384).
func NewMockEncoder(dimensions int) *MockEncoder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEncoder{dimensions: dimensions}
}

// Encode returns one deterministic embedding per text.
func (e *MockEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.encodeOne(text)
	}
	return vectors, nil
}

func (e *MockEncoder) encodeOne(text string) []float32 {
	seed := float64(hashSeed(text))
	v := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		v[i] = float32(math.Sin(seed*float64(i+1))*0.1 + 0.01)
	}
	utils.NormalizeL2(v)
	return v
}

// Dimensions returns the embedding dimension.
func (e *MockEncoder) Dimensions() int {
	return e.dimensions
}

func hashSeed(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h % 100000
}
