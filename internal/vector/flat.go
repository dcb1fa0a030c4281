// Package vector provides an exact flat vector index with cosine similarity
// search. Ranking correctness matters more than scale here, so every query
// scans all stored vectors; approximation is reserved for the reducer's
// neighbor graph.
package vector

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/chizu/internal/models"
	"github.com/hyperjump/chizu/pkg/utils"
)

// Result is a single vector search hit.
type Result struct {
	ID       string
	Score    float64
	Metadata models.Metadata
}

// Flat stores parallel id/vector/metadata arrays and searches by brute-force
// cosine similarity. Vectors within one index share one length; tiers are
// never mixed in one index.
type Flat struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	metadata   []models.Metadata
	mu         sync.RWMutex
}

// NewFlat creates a flat index for vectors of the given dimension.
func NewFlat(dimensions int) (*Flat, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Flat{dimensions: dimensions}, nil
}

// Build replaces the index contents with the given parallel arrays. metadata
// may be nil; when present it must match ids in length.
func (f *Flat) Build(ids []string, vectors [][]float32, metadata []models.Metadata) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors))
	}
	if metadata != nil && len(metadata) != len(ids) {
		return fmt.Errorf("ids and metadata length mismatch: %d vs %d", len(ids), len(metadata))
	}
	for i, v := range vectors {
		if len(v) != f.dimensions {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(v), f.dimensions)
		}
	}
	newIDs := make([]string, len(ids))
	copy(newIDs, ids)
	newVectors := make([][]float32, len(vectors))
	for i, v := range vectors {
		vec := make([]float32, f.dimensions)
		copy(vec, v)
		newVectors[i] = vec
	}
	var newMeta []models.Metadata
	if metadata != nil {
		newMeta = make([]models.Metadata, len(metadata))
		copy(newMeta, metadata)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = newIDs
	f.vectors = newVectors
	f.metadata = newMeta
	return nil
}

// Search returns the top-k entries by cosine similarity with score >= minScore.
// Ties are broken by insertion order.
func (f *Flat) Search(query []float32, k int, minScore float64) ([]*Result, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if k <= 0 || len(f.ids) == 0 {
		return nil, nil
	}
	type scored struct {
		index int
		score float64
	}
	scores := make([]scored, 0, len(f.ids))
	for i, vec := range f.vectors {
		s := utils.CosineSimilarity(query, vec)
		if s >= minScore {
			scores = append(scores, scored{index: i, score: s})
		}
	}
	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	results := make([]*Result, k)
	for i := 0; i < k; i++ {
		r := &Result{ID: f.ids[scores[i].index], Score: scores[i].score}
		if f.metadata != nil {
			r.Metadata = f.metadata[scores[i].index]
		}
		results[i] = r
	}
	return results, nil
}

// Size returns the number of vectors in the index.
func (f *Flat) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Vectors returns the stored vectors in insertion order. The returned slices
// are the index's own; callers must not mutate them.
func (f *Flat) Vectors() [][]float32 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.vectors
}

// IDs returns the stored IDs in insertion order.
func (f *Flat) IDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ids
}

// Save persists the index to path. Directory is created if needed.
// Format: dimension (4), n (4), then per entry: idLen (4), id bytes,
// vector (dimension*4 bytes). Metadata is not persisted; the caller rebuilds
// indices from the dataset on load.
func (f *Flat) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer file.Close()
	if err := binary.Write(file, binary.LittleEndian, uint32(f.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(file, binary.LittleEndian, uint32(len(f.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range f.ids {
		idBytes := []byte(id)
		if err := binary.Write(file, binary.LittleEndian, uint32(len(idBytes))); err != nil {
			return fmt.Errorf("write id len: %w", err)
		}
		if _, err := file.Write(idBytes); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if _, err := file.Write(float32SliceToBytes(f.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents.
// Dimensions must match. A missing file leaves the index unchanged.
func (f *Flat) Load(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()
	var dim, n uint32
	if err := binary.Read(file, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != f.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, f.dimensions)
	}
	if err := binary.Read(file, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	ids := make([]string, 0, n)
	vectors := make([][]float32, 0, n)
	buf := make([]byte, f.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var idLen uint32
		if err := binary.Read(file, binary.LittleEndian, &idLen); err != nil {
			return fmt.Errorf("read id len: %w", err)
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(file, idBytes); err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(file, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		ids = append(ids, string(idBytes))
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = ids
	f.vectors = vectors
	f.metadata = nil
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
