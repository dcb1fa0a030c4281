// Package lexical provides the lexical (BM25-style) side of the hybrid index,
// backed by an in-memory Bleve index with term-frequency statistics.
package lexical

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Result is a single lexical search hit.
type Result struct {
	ID    string
	Score float64
}

// entry is the shape indexed per ID.
type entry struct {
	Text string `json:"text"`
}

// Index is an in-memory lexical index. Build replaces the whole index; there
// is no incremental update, because both hybrid sides must be rebuilt
// together on any id-set change.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so query terms
	// match indexed words exactly.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	im.AddDocumentMapping("entry", docMapping)
	im.DefaultType = "entry"
	im.DefaultMapping = docMapping
	return im
}

// New creates an empty lexical index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create lexical index: %w", err)
	}
	return &Index{index: idx}, nil
}

// Build replaces the index contents with the given parallel id/text arrays.
func (l *Index) Build(ids []string, texts []string) error {
	if len(ids) != len(texts) {
		return fmt.Errorf("ids and texts length mismatch: %d vs %d", len(ids), len(texts))
	}
	fresh, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return fmt.Errorf("failed to create lexical index: %w", err)
	}
	batch := fresh.NewBatch()
	for i, id := range ids {
		if err := batch.Index(id, entry{Text: texts[i]}); err != nil {
			return fmt.Errorf("failed to index %s: %w", id, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		return fmt.Errorf("failed to apply lexical batch: %w", err)
	}

	l.mu.Lock()
	old := l.index
	l.index = fresh
	l.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Search runs a match query over the text field and returns up to k hits in
// descending score order.
func (l *Index) Search(ctx context.Context, query string, k int) ([]*Result, error) {
	l.mu.RLock()
	idx := l.index
	l.mu.RUnlock()

	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = k
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}
	out := make([]*Result, len(res.Hits))
	for i, hit := range res.Hits {
		out[i] = &Result{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// DocCount returns the number of indexed entries.
func (l *Index) DocCount() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index.DocCount()
}

// Close releases the underlying index.
func (l *Index) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index.Close()
}
