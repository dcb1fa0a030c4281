// Package models defines core data structures for documents, chunks, datasets,
// projections, and clusters.
package models

import "fmt"

// Metadata maps string keys to scalar values: string, number, boolean, or nil.
// Structured values are rejected at the boundary so that every consumer can
// serialize a document without type switches.
type Metadata map[string]any

// Set stores value under key. Returns an error for non-scalar values.
func (m Metadata) Set(key string, value any) error {
	switch value.(type) {
	case string, bool, nil,
		int, int32, int64, float32, float64:
		m[key] = value
		return nil
	default:
		return fmt.Errorf("metadata value for %q must be a scalar, got %T", key, value)
	}
}

// Int reads an integer value under key. JSON decoding turns numbers into
// float64, so values that survived an export round trip are converted back.
func (m Metadata) Int(key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Clone returns a shallow copy of the metadata. Nil maps clone to empty maps.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Document is a stored record with its raw text and metadata. The ID is stable
// for the lifetime of the dataset; metadata gains derived fields (cluster,
// cluster_probability, keywords) after clustering.
type Document struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// DocumentInput is the input for ingesting a document. An empty ID is
// replaced with a generated one at ingestion.
type DocumentInput struct {
	ID       string   `json:"id,omitempty"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Chunk is an overlapping passage of a parent document. IDs are derived
// deterministically from the parent ID and position so re-chunking the same
// text yields the same IDs.
type Chunk struct {
	ID       string   `json:"chunk_id"`
	ParentID string   `json:"parent_id"`
	Position int      `json:"position"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// ChunkID returns the deterministic chunk ID for a parent document and position.
func ChunkID(parentID string, position int) string {
	return fmt.Sprintf("%s_chunk_%d", parentID, position)
}
