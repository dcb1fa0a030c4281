// Package embedding provides the tiered embedding wrapper over an external
// encoder: mode prefixing, token-budget truncation, batching, and caching.
package embedding

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/chizu/internal/models"
	"github.com/hyperjump/chizu/pkg/utils"
)

// Encoder is the external model collaborator. It must return exactly one
// vector per input text; the wrapper enforces this.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Prefixes prepended before encoding. Cross-mode score comparability depends
// on consistent query/passage framing, so these never vary per call.
const (
	queryPrefix   = "query: "
	passagePrefix = "passage: "
)

// Options selects the embedding mode and optional token budget for one batch.
type Options struct {
	Mode models.EmbeddingMode
	// MaxTokens pre-truncates each text to this many whitespace tokens before
	// encoding. Zero means no truncation. Used for the summary/clustering
	// tier, where gist matters more than completeness.
	MaxTokens int
}

// Embedder wraps an Encoder with prefixing, truncation, batching, and an LRU
// cache keyed by (text, mode, maxTokens) content identity.
type Embedder struct {
	enc       Encoder
	cache     *lru.Cache[string, []float32]
	batchSize int
	logger    *zap.Logger
}

// EmbedderOption configures an Embedder.
type EmbedderOption func(*Embedder)

// WithLogger sets a logger for debug output (cache hits, batch sizes).
func WithLogger(l *zap.Logger) EmbedderOption {
	return func(e *Embedder) { e.logger = l }
}

// New creates an embedding wrapper. cacheSize and batchSize fall back to
// 10000 and 32 when non-positive.
func New(enc Encoder, cacheSize, batchSize int, opts ...EmbedderOption) (*Embedder, error) {
	if cacheSize <= 0 {
		cacheSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	cache, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	e := &Embedder{enc: enc, cache: cache, batchSize: batchSize}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Dimensions returns the encoder's vector length.
func (e *Embedder) Dimensions() int {
	return e.enc.Dimensions()
}

// EmbedBatch embeds texts in the given mode, returning exactly one vector per
// input. Identical (text, mode, maxTokens) triples reuse cached vectors. A
// count mismatch from the encoder is an error; partial batches are never
// returned silently.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string, opts Options) ([][]float32, error) {
	if opts.Mode != models.ModeQuery && opts.Mode != models.ModePassage {
		return nil, fmt.Errorf("unknown embedding mode %q", opts.Mode)
	}

	prepared := make([]string, len(texts))
	keys := make([]string, len(texts))
	for i, text := range texts {
		prepared[i] = e.prepare(text, opts)
		keys[i] = cacheKey(prepared[i], opts)
	}

	vectors := make([][]float32, len(texts))
	var missing []int
	for i, key := range keys {
		if v, ok := e.cache.Get(key); ok {
			vectors[i] = v
		} else {
			missing = append(missing, i)
		}
	}
	if e.logger != nil {
		e.logger.Debug("embedding batch",
			zap.String("mode", string(opts.Mode)),
			zap.Int("texts", len(texts)),
			zap.Int("cache_hits", len(texts)-len(missing)),
		)
	}

	for start := 0; start < len(missing); start += e.batchSize {
		end := start + e.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := make([]string, 0, end-start)
		for _, idx := range missing[start:end] {
			batch = append(batch, prepared[idx])
		}
		encoded, err := e.enc.Encode(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("encoder failed: %w", err)
		}
		if len(encoded) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(batch), len(encoded))
		}
		for j, idx := range missing[start:end] {
			vectors[idx] = encoded[j]
			e.cache.Add(keys[idx], encoded[j])
		}
	}

	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding count mismatch: no vector for text %d", i)
		}
	}
	return vectors, nil
}

// EmbedQuery embeds a single interactive query in query mode.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text}, Options{Mode: models.ModeQuery})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) prepare(text string, opts Options) string {
	if opts.MaxTokens > 0 {
		text = utils.TruncateTokens(text, opts.MaxTokens)
	}
	switch opts.Mode {
	case models.ModePassage:
		return passagePrefix + text
	default:
		return queryPrefix + text
	}
}

func cacheKey(prepared string, opts Options) string {
	return fmt.Sprintf("%s|%d|%s", opts.Mode, opts.MaxTokens, utils.ContentHash(prepared))
}
