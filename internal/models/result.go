package models

// SearchResult is a single document-tier search hit.
type SearchResult struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata,omitempty"`
	Rank     int      `json:"rank"`
}

// ContextChunk is one chunk selected as context for answer generation.
type ContextChunk struct {
	ChunkID  string  `json:"chunk_id"`
	ParentID string  `json:"parent_id"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// Answer is the result of a question-answering call. For streamed calls Text
// is the concatenation of all emitted tokens up to completion or cancellation.
type Answer struct {
	Text      string         `json:"text"`
	Sources   []ContextChunk `json:"sources"`
	Cancelled bool           `json:"cancelled,omitempty"`
}
