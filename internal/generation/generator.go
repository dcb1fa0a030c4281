// Package generation produces natural-language answers from assembled
// retrieval context. Providers implement Generator; the pipeline stays
// agnostic to which backend is wired in.
package generation

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when a provider is not configured.
var ErrUnavailable = errors.New("generation provider unavailable")

// Options control a single generation call.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Generator answers a prompt in one shot or as a token stream.
// Stream invokes emit for each text fragment as it arrives; a context
// cancellation stops the stream and surfaces ctx.Err().
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	Stream(ctx context.Context, prompt string, opts Options, emit func(fragment string) error) error
}
