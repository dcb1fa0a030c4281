package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/chizu/internal/generation"
	"github.com/hyperjump/chizu/internal/models"
)

// AskQuestion retrieves context chunks for the question and generates a
// single-shot answer grounded in them.
func (e *Engine) AskQuestion(ctx context.Context, req *models.AskRequest) (*models.Answer, error) {
	s, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return e.askSnapshot(ctx, s, req)
}

func (e *Engine) askSnapshot(ctx context.Context, s *snapshot, req *models.AskRequest) (*models.Answer, error) {
	contexts, err := e.retrieveContext(ctx, s, req)
	if err != nil {
		return nil, err
	}
	prompt := buildPrompt(req.Question, contexts)
	text, err := e.generator.Generate(ctx, prompt, e.genOptions(req))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &models.Answer{Sources: contexts, Cancelled: true}, nil
		}
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	return &models.Answer{Text: text, Sources: contexts}, nil
}

// AskQuestionStream is the streaming variant: emit receives answer fragments
// as they arrive. Cancelling the context mid-stream yields a partial answer
// marked cancelled rather than an error, so callers can render what arrived.
func (e *Engine) AskQuestionStream(ctx context.Context, req *models.AskRequest, emit func(fragment string) error) (*models.Answer, error) {
	s, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return e.askStreamSnapshot(ctx, s, req, emit)
}

func (e *Engine) askStreamSnapshot(ctx context.Context, s *snapshot, req *models.AskRequest, emit func(fragment string) error) (*models.Answer, error) {
	contexts, err := e.retrieveContext(ctx, s, req)
	if err != nil {
		return nil, err
	}
	prompt := buildPrompt(req.Question, contexts)

	var sb strings.Builder
	err = e.generator.Stream(ctx, prompt, e.genOptions(req), func(fragment string) error {
		sb.WriteString(fragment)
		return emit(fragment)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return &models.Answer{Text: sb.String(), Sources: contexts, Cancelled: true}, nil
		}
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	return &models.Answer{Text: sb.String(), Sources: contexts}, nil
}

// retrieveContext runs the question against both sides of the chunk-tier
// index, fuses the candidate lists by reciprocal rank, applies the scope
// filter, and assembles context under the character budget.
func (e *Engine) retrieveContext(ctx context.Context, s *snapshot, req *models.AskRequest) ([]models.ContextChunk, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	topK := e.cfg.Ask.TopKCandidates
	if topK <= 0 {
		topK = 50
	}

	// The question is a query against passage-mode chunks, so it is embedded
	// in query mode.
	queryVec, err := e.embedder.EmbedQuery(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	vecHits, err := s.chunkIndex.SearchVector(queryVec, topK, 0)
	if err != nil {
		return nil, err
	}
	lexHits, err := s.chunkIndex.SearchLexical(ctx, req.Question, topK)
	if err != nil {
		return nil, err
	}

	fused := fuseResults(vecHits, lexHits)

	var scope map[string]bool
	if len(req.Scope) > 0 {
		scope = make(map[string]bool, len(req.Scope))
		for _, id := range req.Scope {
			scope[id] = true
		}
	}

	budget := e.cfg.Ask.ContextBudget
	if budget <= 0 {
		budget = 4000
	}

	var contexts []models.ContextChunk
	used := 0
	for _, hit := range fused {
		if len(contexts) >= req.NumResults {
			break
		}
		parentID := s.dataset.ChunkToParent[hit.ID]
		if scope != nil && !scope[parentID] {
			continue
		}
		ch := s.dataset.ChunkByID(hit.ID)
		if ch == nil {
			continue
		}
		if used+len(ch.Text) > budget && len(contexts) > 0 {
			break
		}
		contexts = append(contexts, models.ContextChunk{
			ChunkID:  ch.ID,
			ParentID: parentID,
			Text:     ch.Text,
			Score:    hit.Score,
		})
		used += len(ch.Text)
	}
	return contexts, nil
}

func (e *Engine) genOptions(req *models.AskRequest) generation.Options {
	temp := req.Temperature
	if temp == 0 {
		temp = e.cfg.Ask.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = e.cfg.Ask.MaxTokens
	}
	return generation.Options{Temperature: temp, MaxTokens: maxTokens}
}

func buildPrompt(question string, contexts []models.ContextChunk) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using only the context below. ")
	sb.WriteString("If the context does not contain the answer, say so.\n\n")
	for i, c := range contexts {
		sb.WriteString(fmt.Sprintf("[%d] %s\n\n", i+1, c.Text))
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}
