package models

import "time"

// EmbeddingMode selects how texts are framed before encoding. Query mode is
// symmetric (clustering, document tier); passage mode is asymmetric
// (retrieval, chunk tier). Scores are only comparable within one mode.
type EmbeddingMode string

const (
	ModeQuery   EmbeddingMode = "query"
	ModePassage EmbeddingMode = "passage"
)

// NoiseLabel is the reserved cluster label for points not assigned to any
// density cluster. It is never reused as a real cluster ID.
const NoiseLabel = -1

// ProjectionPoint is a low-dimensional coordinate the reducer assigns to one
// entity. Each document gets one at clustering dimensionality and one at
// visualization dimensionality (2).
type ProjectionPoint struct {
	EntityID    string    `json:"entity_id"`
	Coordinates []float64 `json:"coordinates"`
}

// ClusterKeyword is a term with its frequency-derived score.
type ClusterKeyword struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// Cluster is one density cluster over the document tier. Clusters are
// recomputed wholesale each run, never incrementally merged.
type Cluster struct {
	Label       int              `json:"label"`
	MemberCount int              `json:"member_count"`
	// Keywords is the detailed, score-annotated term list.
	Keywords []ClusterKeyword `json:"keywords"`
	// ShortLabel is the few-term visualization label, e.g. "kernel, driver, boot".
	ShortLabel string `json:"short_label"`
	// ProbabilityByMember maps document ID to cluster membership probability in [0,1].
	ProbabilityByMember map[string]float64 `json:"probability_by_member"`
}

// ProcessingSummary reports what happened during a pipeline run, including
// degradable conditions that must never be silently dropped.
type ProcessingSummary struct {
	DocumentCount     int                      `json:"document_count"`
	ChunkCount        int                      `json:"chunk_count"`
	ClusterCount      int                      `json:"cluster_count"`
	NoiseCount        int                      `json:"noise_count"`
	DroppedEmpty      int                      `json:"dropped_empty"`
	DroppedDuplicates int                      `json:"dropped_duplicates"`
	Warnings          []string                 `json:"warnings,omitempty"`
	StageDurations    map[string]time.Duration `json:"stage_durations,omitempty"`
}

// Dataset is the aggregate root owning every derived artifact as one
// versioned unit. All cross-references (chunk to parent, vector to owner,
// projection to document) resolve within a single Dataset value, so a
// snapshot can be swapped atomically.
type Dataset struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version int    `json:"version"`

	Documents     []*Document       `json:"documents"`
	Chunks        []*Chunk          `json:"chunks"`
	ChunkToParent map[string]string `json:"chunk_map"`

	// ParentVectors[i] embeds Documents[i] in query mode; ChunkVectors[i]
	// embeds Chunks[i] in passage mode. Tiers are never mixed in one index.
	ParentVectors [][]float32 `json:"-"`
	ChunkVectors  [][]float32 `json:"-"`

	// ProjectionCluster is the clustering-dimensional layout (default 15 dims);
	// Projection2D is the visualization layout.
	ProjectionCluster []ProjectionPoint `json:"-"`
	Projection2D      []ProjectionPoint `json:"projection_2d"`

	Clusters []*Cluster         `json:"clusters"`
	Summary  *ProcessingSummary `json:"summary,omitempty"`
}

// DocumentByID returns the document with the given ID, or nil.
func (d *Dataset) DocumentByID(id string) *Document {
	for _, doc := range d.Documents {
		if doc.ID == id {
			return doc
		}
	}
	return nil
}

// ChunkByID returns the chunk with the given ID, or nil.
func (d *Dataset) ChunkByID(id string) *Chunk {
	for _, ch := range d.Chunks {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

// VisualizationData is the read-only snapshot served to the UI collaborator.
type VisualizationData struct {
	DatasetID string            `json:"dataset_id"`
	Version   int               `json:"version"`
	Points    []ProjectionPoint `json:"points"`
	// Labels[i] is the cluster label for Points[i]; NoiseLabel for outliers.
	Labels   []int              `json:"labels"`
	Clusters []*Cluster         `json:"clusters"`
	Summary  *ProcessingSummary `json:"summary,omitempty"`
}
