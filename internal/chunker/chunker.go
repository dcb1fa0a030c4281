// Package chunker splits documents into overlapping, size-bounded passages.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/hyperjump/chizu/internal/models"
)

// Options controls passage splitting. All sizes are in characters.
type Options struct {
	// TargetSize is the approximate passage length.
	TargetSize int
	// Overlap is the number of characters shared between neighboring passages.
	Overlap int
	// MinSize drops passages shorter than this after trimming. Short passages
	// are dropped, never padded.
	MinSize int
	// BatchSize bounds concurrency in ChunkAll. Defaults to 50.
	BatchSize int
}

// wholeDocFactor: documents no longer than this multiple of TargetSize are
// kept whole, to avoid fragmenting short records.
const wholeDocFactor = 1.2

// Chunker splits text into overlapping character-window passages with
// deterministic IDs, so re-chunking the same text yields the same chunks.
type Chunker struct {
	opts Options
}

// New creates a chunker. Zero or negative option values fall back to
// 512/128/50 and batch size 50.
func New(opts Options) *Chunker {
	if opts.TargetSize <= 0 {
		opts.TargetSize = 512
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.TargetSize {
		opts.Overlap = opts.TargetSize / 4
	}
	if opts.MinSize <= 0 {
		opts.MinSize = 50
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	return &Chunker{opts: opts}
}

// Chunk splits text into an ordered sequence of passages for the given parent
// document. Chunking never hard-fails: any split failure degrades to a single
// whole-document chunk. Empty or whitespace-only text yields no chunks.
func (c *Chunker) Chunk(parentID, text string) []*models.Chunk {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if float64(len(runes)) <= wholeDocFactor*float64(c.opts.TargetSize) {
		return []*models.Chunk{c.newChunk(parentID, 0, trimmed)}
	}
	pieces := c.split(runes)
	if len(pieces) == 0 {
		// Degraded fallback: the whole document as one chunk.
		return []*models.Chunk{c.newChunk(parentID, 0, trimmed)}
	}
	chunks := make([]*models.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = c.newChunk(parentID, i, p)
	}
	return chunks
}

// split cuts text into ~TargetSize windows stepping by TargetSize-Overlap.
// Windows are measured and cut in runes, never bytes, so multi-byte text
// stays valid UTF-8. Pieces shorter than MinSize after trimming are dropped.
func (c *Chunker) split(runes []rune) []string {
	step := c.opts.TargetSize - c.opts.Overlap
	if step <= 0 {
		step = 1
	}
	var pieces []string
	for start := 0; start < len(runes); start += step {
		end := start + c.opts.TargetSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if utf8.RuneCountInString(piece) >= c.opts.MinSize {
			pieces = append(pieces, piece)
		}
		if end >= len(runes) {
			break
		}
	}
	return pieces
}

func (c *Chunker) newChunk(parentID string, position int, text string) *models.Chunk {
	return &models.Chunk{
		ID:       models.ChunkID(parentID, position),
		ParentID: parentID,
		Position: position,
		Text:     text,
	}
}

// Result is the output of ChunkAll: all chunks in document order plus the
// chunk-to-parent map. The map is a total function over the chunks.
type Result struct {
	Chunks        []*models.Chunk
	ChunkToParent map[string]string
}

// ChunkAll chunks documents in fixed-size batches to bound concurrency while
// preserving document order. The context is checked between batches.
func (c *Chunker) ChunkAll(ctx context.Context, documents []*models.Document) (*Result, error) {
	perDoc := make([][]*models.Chunk, len(documents))
	for start := 0; start < len(documents); start += c.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("chunking cancelled: %w", err)
		}
		end := start + c.opts.BatchSize
		if end > len(documents) {
			end = len(documents)
		}
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				perDoc[i] = c.Chunk(documents[i].ID, documents[i].Text)
			}(i)
		}
		wg.Wait()
	}

	result := &Result{ChunkToParent: make(map[string]string)}
	for _, chunks := range perDoc {
		for _, ch := range chunks {
			result.Chunks = append(result.Chunks, ch)
			result.ChunkToParent[ch.ID] = ch.ParentID
		}
	}
	return result, nil
}
