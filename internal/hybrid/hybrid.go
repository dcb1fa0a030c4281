// Package hybrid pairs a flat vector index with a lexical index over the same
// id set. The two sides are always rebuilt together; searching one side while
// its sibling is stale is an error.
package hybrid

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/chizu/internal/lexical"
	"github.com/hyperjump/chizu/internal/models"
	"github.com/hyperjump/chizu/internal/vector"
)

// ErrStale is returned when one side of the index was rebuilt without the
// other, or a build failed partway.
var ErrStale = errors.New("hybrid index sides are out of sync")

// Entry is one item indexed on both sides under the same ID.
type Entry struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata models.Metadata
}

// Index is a paired vector+lexical index over one embedding tier.
type Index struct {
	mu    sync.RWMutex
	vec   *vector.Flat
	lex   *lexical.Index
	valid bool
}

// New creates an empty hybrid index for vectors of the given dimension.
func New(dimensions int) (*Index, error) {
	vec, err := vector.NewFlat(dimensions)
	if err != nil {
		return nil, err
	}
	lex, err := lexical.New()
	if err != nil {
		return nil, err
	}
	return &Index{vec: vec, lex: lex}, nil
}

// Build replaces both sides from the same entry list. If either side fails,
// the index is marked stale and every search errors until the next
// successful Build.
func (h *Index) Build(entries []Entry) error {
	ids := make([]string, len(entries))
	vectors := make([][]float32, len(entries))
	texts := make([]string, len(entries))
	metadata := make([]models.Metadata, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		vectors[i] = e.Vector
		texts[i] = e.Text
		metadata[i] = e.Metadata
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.valid = false
	if err := h.vec.Build(ids, vectors, metadata); err != nil {
		return fmt.Errorf("vector side build failed: %w", err)
	}
	if err := h.lex.Build(ids, texts); err != nil {
		return fmt.Errorf("lexical side build failed: %w", err)
	}
	h.valid = true
	return nil
}

// SearchVector searches the vector side.
func (h *Index) SearchVector(query []float32, k int, minScore float64) ([]*vector.Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.valid {
		return nil, ErrStale
	}
	return h.vec.Search(query, k, minScore)
}

// SearchLexical searches the lexical side.
func (h *Index) SearchLexical(ctx context.Context, query string, k int) ([]*lexical.Result, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.valid {
		return nil, ErrStale
	}
	return h.lex.Search(ctx, query, k)
}

// Size returns the number of indexed entries.
func (h *Index) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.vec.Size()
}

// Close releases the lexical side.
func (h *Index) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.valid = false
	return h.lex.Close()
}
