package store

import (
	"encoding/json"
	"fmt"

	"github.com/hyperjump/chizu/internal/models"
)

// ExportFormatVersion identifies the archive layout. Bump on any
// incompatible change.
const ExportFormatVersion = "1.0"

const exportSchema = "chizu/dataset"

type exportMetadata struct {
	Version        string `json:"version"`
	Schema         string `json:"schema"`
	Model          string `json:"model,omitempty"`
	Dimension      int    `json:"dimension"`
	DatasetID      string `json:"dataset_id"`
	Name           string `json:"name"`
	DatasetVersion int    `json:"dataset_version"`
}

// exportTier is one embedding population with the mode it was encoded in.
// Scores are only comparable within a mode, so the tag travels with the
// vectors.
type exportTier struct {
	Vectors [][]float32 `json:"vectors"`
	Mode    string      `json:"mode"`
}

type exportEmbeddings struct {
	Parent   exportTier        `json:"parent"`
	Chunks   exportTier        `json:"chunks"`
	ChunkMap map[string]string `json:"chunk_map"`
}

type exportVisualization struct {
	Projection2D []models.ProjectionPoint `json:"projection_2d"`
	Clusters     []*models.Cluster        `json:"clusters"`
}

// exportArchive is the self-contained on-disk form of a dataset.
// Projection at clustering dimensionality is intentionally not
// exported; it is an intermediate artifact recomputed on reprocess.
type exportArchive struct {
	Metadata      *exportMetadata           `json:"metadata"`
	Documents     []*models.Document        `json:"documents"`
	Chunks        []*models.Chunk           `json:"chunks"`
	Embeddings    *exportEmbeddings         `json:"embeddings"`
	Visualization *exportVisualization      `json:"visualization,omitempty"`
	Summary       *models.ProcessingSummary `json:"summary,omitempty"`
}

// Export serializes a dataset into the versioned archive format.
func Export(ds *models.Dataset) ([]byte, error) {
	if ds == nil {
		return nil, fmt.Errorf("nil dataset")
	}
	dimension := 0
	if len(ds.ParentVectors) > 0 {
		dimension = len(ds.ParentVectors[0])
	}
	archive := exportArchive{
		Metadata: &exportMetadata{
			Version:        ExportFormatVersion,
			Schema:         exportSchema,
			Dimension:      dimension,
			DatasetID:      ds.ID,
			Name:           ds.Name,
			DatasetVersion: ds.Version,
		},
		Documents: ds.Documents,
		Chunks:    ds.Chunks,
		Embeddings: &exportEmbeddings{
			Parent:   exportTier{Vectors: ds.ParentVectors, Mode: string(models.ModeQuery)},
			Chunks:   exportTier{Vectors: ds.ChunkVectors, Mode: string(models.ModePassage)},
			ChunkMap: ds.ChunkToParent,
		},
		Summary: ds.Summary,
	}
	if len(ds.Projection2D) > 0 || len(ds.Clusters) > 0 {
		archive.Visualization = &exportVisualization{
			Projection2D: ds.Projection2D,
			Clusters:     ds.Clusters,
		}
	}
	data, err := json.Marshal(archive)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dataset: %w", err)
	}
	return data, nil
}

// Import decodes an exported archive back into a dataset. Archives
// missing any of the required sections are rejected whole; the caller
// rebuilds search indices from the raw vectors afterwards, never
// trusting an embedded index blob.
func Import(data []byte) (*models.Dataset, error) {
	var archive exportArchive
	if err := json.Unmarshal(data, &archive); err != nil {
		return nil, fmt.Errorf("failed to decode archive: %w", err)
	}
	if archive.Metadata == nil {
		return nil, fmt.Errorf("archive missing metadata section")
	}
	if archive.Metadata.Version != ExportFormatVersion {
		return nil, fmt.Errorf("unsupported archive format version: %q", archive.Metadata.Version)
	}
	if len(archive.Documents) == 0 {
		return nil, fmt.Errorf("archive missing documents section")
	}
	if archive.Embeddings == nil {
		return nil, fmt.Errorf("archive missing embeddings section")
	}
	if len(archive.Embeddings.Parent.Vectors) != len(archive.Documents) {
		return nil, fmt.Errorf("archive inconsistent: %d documents, %d parent vectors",
			len(archive.Documents), len(archive.Embeddings.Parent.Vectors))
	}
	if len(archive.Embeddings.Chunks.Vectors) != len(archive.Chunks) {
		return nil, fmt.Errorf("archive inconsistent: %d chunks, %d chunk vectors",
			len(archive.Chunks), len(archive.Embeddings.Chunks.Vectors))
	}
	for i, v := range archive.Embeddings.Parent.Vectors {
		if len(v) != archive.Metadata.Dimension {
			return nil, fmt.Errorf("archive inconsistent: parent vector %d has %d dims, metadata says %d",
				i, len(v), archive.Metadata.Dimension)
		}
	}

	ds := &models.Dataset{
		ID:            archive.Metadata.DatasetID,
		Name:          archive.Metadata.Name,
		Version:       archive.Metadata.DatasetVersion,
		Documents:     archive.Documents,
		Chunks:        archive.Chunks,
		ChunkToParent: archive.Embeddings.ChunkMap,
		ParentVectors: archive.Embeddings.Parent.Vectors,
		ChunkVectors:  archive.Embeddings.Chunks.Vectors,
		Summary:       archive.Summary,
	}
	if archive.Visualization != nil {
		ds.Projection2D = archive.Visualization.Projection2D
		ds.Clusters = archive.Visualization.Clusters
	}
	return ds, nil
}
