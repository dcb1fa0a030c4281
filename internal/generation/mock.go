package generation

import (
	"context"
	"fmt"
	"strings"
)

// MockGenerator is a deterministic stand-in used in tests and when no
// provider is configured. Answers summarize the prompt instead of
// calling out anywhere.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return m.answer(prompt), nil
}

func (m *MockGenerator) Stream(ctx context.Context, prompt string, opts Options, emit func(string) error) error {
	words := strings.Fields(m.answer(prompt))
	for i, w := range words {
		if err := ctx.Err(); err != nil {
			return err
		}
		fragment := w
		if i < len(words)-1 {
			fragment += " "
		}
		if err := emit(fragment); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockGenerator) answer(prompt string) string {
	lines := strings.Split(prompt, "\n")
	question := ""
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			question = s
			break
		}
	}
	return fmt.Sprintf("Based on the provided context: %s", question)
}
