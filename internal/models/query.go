package models

import "fmt"

// SearchType selects the retrieval path for document-tier search.
type SearchType string

const (
	SearchLexical  SearchType = "lexical"
	SearchSemantic SearchType = "semantic"
)

// SearchQuery is a document-tier search request.
type SearchQuery struct {
	Query    string     `json:"query"`
	Type     SearchType `json:"type,omitempty"`
	K        int        `json:"k,omitempty"`
	MinScore float64    `json:"min_score,omitempty"`
}

// Validate checks the query and fills defaults: lexical search, k=10, k capped at 100.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Type == "" {
		q.Type = SearchLexical
	}
	if q.Type != SearchLexical && q.Type != SearchSemantic {
		return fmt.Errorf("unknown search type %q", q.Type)
	}
	if q.K <= 0 {
		q.K = 10
	}
	if q.K > 100 {
		q.K = 100
	}
	return nil
}

// AskRequest is a retrieval-augmented question request over the chunk tier.
type AskRequest struct {
	Question string `json:"question"`
	// Scope restricts candidate chunks to those whose parent document ID is
	// in the list. Empty means no restriction.
	Scope       []string `json:"scope,omitempty"`
	NumResults  int      `json:"num_results,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

// Validate checks the request and fills defaults: 5 context chunks, capped at 20.
func (r *AskRequest) Validate() error {
	if r.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if r.NumResults <= 0 {
		r.NumResults = 5
	}
	if r.NumResults > 20 {
		r.NumResults = 20
	}
	return nil
}
