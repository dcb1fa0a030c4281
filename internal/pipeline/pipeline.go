// Package pipeline orchestrates the full dataset lifecycle: ingestion,
// chunking, two-tier embedding, hybrid indexing, dimensionality reduction,
// density clustering, and retrieval-augmented question answering. All derived
// state lives in an immutable snapshot that is swapped atomically, so queries
// in flight keep a consistent view while a reprocess runs.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/chizu/internal/chunker"
	"github.com/hyperjump/chizu/internal/cluster"
	"github.com/hyperjump/chizu/internal/config"
	"github.com/hyperjump/chizu/internal/embedding"
	"github.com/hyperjump/chizu/internal/generation"
	"github.com/hyperjump/chizu/internal/hybrid"
	"github.com/hyperjump/chizu/internal/models"
	"github.com/hyperjump/chizu/internal/reduce"
	"github.com/hyperjump/chizu/internal/store"
	"github.com/hyperjump/chizu/pkg/utils"
)

// ProgressFunc receives stage names and a completion fraction in [0,1] for
// the stage. Long stages report intermediate fractions.
type ProgressFunc func(stage string, fraction float64)

// snapshot bundles a dataset with the search indices built from it. Once
// published it is never mutated.
type snapshot struct {
	dataset     *models.Dataset
	parentIndex *hybrid.Index
	chunkIndex  *hybrid.Index
}

// Engine runs the processing pipeline and serves queries against the current
// snapshot.
type Engine struct {
	cfg       *config.Config
	logger    *zap.Logger
	embedder  *embedding.Embedder
	reducer   *reduce.Reducer
	clusterer *cluster.Clusterer
	generator generation.Generator
	blobs     store.Store

	mu sync.RWMutex
	// datasets holds every open snapshot by dataset ID; current is the one
	// the convenience query methods use.
	datasets map[string]*snapshot
	current  *snapshot
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used across all pipeline stages.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithBlobStore sets the store used by SaveDataset and LoadDataset.
func WithBlobStore(s store.Store) EngineOption {
	return func(e *Engine) { e.blobs = s }
}

// NewEngine wires the pipeline from its parts. The encoder and generator are
// injected so tests and offline runs can use the mock implementations.
func NewEngine(cfg *config.Config, enc embedding.Encoder, gen generation.Generator, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		cfg:       cfg,
		logger:    zap.NewNop(),
		generator: gen,
		datasets:  make(map[string]*snapshot),
	}
	for _, opt := range opts {
		opt(e)
	}

	emb, err := embedding.New(enc, cfg.Embedding.CacheSize, cfg.Embedding.BatchSize,
		embedding.WithLogger(e.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	e.embedder = emb
	e.reducer = reduce.NewReducer(reduce.WithLogger(e.logger))
	e.clusterer = cluster.NewClusterer(cluster.WithLogger(e.logger))
	if e.blobs == nil {
		e.blobs = store.NewMemoryStore()
	}
	return e, nil
}

// Close releases every open snapshot's index resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, s := range e.datasets {
		_ = s.parentIndex.Close()
		_ = s.chunkIndex.Close()
		delete(e.datasets, id)
	}
	e.current = nil
	return e.blobs.Close()
}

// ProcessDataset runs the full pipeline over the given inputs and publishes
// the result as the current snapshot. A reprocess replaces the previous
// snapshot wholesale; queries started before the swap finish against the old
// one. Reduction and clustering degrade to warnings instead of failing the
// run; every degradation is recorded in the summary.
func (e *Engine) ProcessDataset(ctx context.Context, name string, inputs []models.DocumentInput, progress ProgressFunc) (*models.ProcessingSummary, error) {
	if progress == nil {
		progress = func(string, float64) {}
	}
	summary := &models.ProcessingSummary{
		StageDurations: make(map[string]time.Duration),
	}
	timed := func(stage string) func() {
		start := time.Now()
		return func() { summary.StageDurations[stage] = time.Since(start) }
	}

	// Validate and dedupe.
	done := timed(StageValidate)
	docs, err := e.validateInputs(inputs, summary)
	done()
	if err != nil {
		return nil, stageErr(StageValidate, err)
	}
	progress(StageValidate, 1.0)
	summary.DocumentCount = len(docs)

	// Chunk.
	done = timed(StageChunk)
	chunkResult, err := e.newChunker().ChunkAll(ctx, docs)
	done()
	if err != nil {
		return nil, stageErr(StageChunk, err)
	}
	progress(StageChunk, 1.0)
	summary.ChunkCount = len(chunkResult.Chunks)

	// Embed the document tier in query mode with the token budget, then the
	// chunk tier in passage mode. The tiers never share an index or a cache
	// entry.
	done = timed(StageEmbedParent)
	parentTexts := make([]string, len(docs))
	for i, d := range docs {
		parentTexts[i] = d.Text
	}
	parentVectors, err := e.embedder.EmbedBatch(ctx, parentTexts, embedding.Options{
		Mode:      models.ModeQuery,
		MaxTokens: e.cfg.Embedding.MaxTokens,
	})
	done()
	if err != nil {
		return nil, stageErr(StageEmbedParent, err)
	}
	progress(StageEmbedParent, 1.0)

	done = timed(StageEmbedChunk)
	chunkTexts := make([]string, len(chunkResult.Chunks))
	for i, ch := range chunkResult.Chunks {
		chunkTexts[i] = ch.Text
	}
	chunkVectors, err := e.embedder.EmbedBatch(ctx, chunkTexts, embedding.Options{
		Mode: models.ModePassage,
	})
	done()
	if err != nil {
		return nil, stageErr(StageEmbedChunk, err)
	}
	progress(StageEmbedChunk, 1.0)

	if len(parentVectors) != len(docs) || len(chunkVectors) != len(chunkResult.Chunks) {
		return nil, stageErr(StageEmbedChunk, ErrConsistency)
	}

	ds := &models.Dataset{
		ID:            uuid.New().String(),
		Name:          name,
		Version:       e.nextVersion(),
		Documents:     docs,
		Chunks:        chunkResult.Chunks,
		ChunkToParent: chunkResult.ChunkToParent,
		ParentVectors: parentVectors,
		ChunkVectors:  chunkVectors,
		Summary:       summary,
	}

	// Build both hybrid indices before any reduction so search works even
	// when the map degrades.
	done = timed(StageIndex)
	parentIndex, chunkIndex, err := e.buildIndices(ds)
	done()
	if err != nil {
		return nil, stageErr(StageIndex, err)
	}
	progress(StageIndex, 1.0)

	// Reduce twice: once at clustering dimensionality, once to 2D for the
	// map view. Failures past this point go through the fallback policy; a
	// cancelled context always aborts.
	done = timed(StageReduceCluster)
	clusterCoords, err := e.reducer.Reduce(ctx, parentVectors, reduce.Options{
		TargetDim:      e.cfg.Reduce.ClusterDim,
		Neighbors:      e.cfg.Reduce.Neighbors,
		MinDist:        0,
		Iterations:     e.cfg.Reduce.Iterations,
		ExactThreshold: e.cfg.Reduce.ExactThreshold,
	}, func(f float64) { progress(StageReduceCluster, f) })
	done()
	if err != nil {
		if degradeErr := e.degrade(ctx, StageReduceCluster, err, ds, summary); degradeErr != nil {
			return nil, degradeErr
		}
		clusterCoords = nil
	} else {
		ds.ProjectionCluster = projectionPoints(docs, clusterCoords)
	}

	done = timed(StageReduceViz)
	vizCoords, err := e.reducer.Reduce(ctx, parentVectors, reduce.Options{
		TargetDim:      2,
		Neighbors:      e.cfg.Reduce.Neighbors,
		MinDist:        e.cfg.Reduce.MinDist2D,
		Iterations:     e.cfg.Reduce.Iterations,
		ExactThreshold: e.cfg.Reduce.ExactThreshold,
	}, func(f float64) { progress(StageReduceViz, f) })
	done()
	if err != nil {
		if degradeErr := e.degrade(ctx, StageReduceViz, err, ds, summary); degradeErr != nil {
			return nil, degradeErr
		}
	} else {
		ds.Projection2D = projectionPoints(docs, vizCoords)
	}

	// Cluster on the higher-dimensional projection.
	done = timed(StageCluster)
	if clusterCoords != nil {
		if err := e.clusterDocuments(ctx, ds, clusterCoords, summary, progress); err != nil {
			done()
			if degradeErr := e.degrade(ctx, StageCluster, err, ds, summary); degradeErr != nil {
				return nil, degradeErr
			}
		}
	}
	done()
	progress(StageCluster, 1.0)

	e.publish(&snapshot{dataset: ds, parentIndex: parentIndex, chunkIndex: chunkIndex})

	e.logger.Info("dataset processed",
		zap.String("dataset_id", ds.ID),
		zap.Int("documents", summary.DocumentCount),
		zap.Int("chunks", summary.ChunkCount),
		zap.Int("clusters", summary.ClusterCount),
		zap.Int("warnings", len(summary.Warnings)))

	return summary, nil
}

// degrade applies the fallback policy for a failed stage. It returns nil
// when the failure was absorbed (with the degradation recorded as a warning)
// and a stage-tagged error when the run must abort. Cancellation always
// aborts regardless of policy.
func (e *Engine) degrade(ctx context.Context, stage string, err error, ds *models.Dataset, summary *models.ProcessingSummary) error {
	if ctx.Err() != nil {
		return stageErr(stage, err)
	}
	switch fallbackFor(stage) {
	case skipClustering:
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("clustering projection failed, clusters skipped: %v", err))
	case skipVisualization:
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("visualization projection failed, map view unavailable: %v", err))
	case allNoise:
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("clustering failed, all documents treated as unclustered: %v", err))
		summary.NoiseCount = len(ds.Documents)
		for _, d := range ds.Documents {
			if d.Metadata == nil {
				d.Metadata = make(models.Metadata)
			}
			_ = d.Metadata.Set("cluster", models.NoiseLabel)
			_ = d.Metadata.Set("cluster_probability", 0.0)
		}
	default:
		return stageErr(stage, err)
	}
	e.logger.Warn("stage degraded", zap.String("stage", stage), zap.Error(err))
	return nil
}

// validateInputs drops empty documents, deduplicates by content hash, and
// assigns IDs where missing. Order is preserved; the first occurrence of a
// duplicate wins.
func (e *Engine) validateInputs(inputs []models.DocumentInput, summary *models.ProcessingSummary) ([]*models.Document, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no documents", ErrInvalidInput)
	}
	seen := make(map[string]bool)
	docs := make([]*models.Document, 0, len(inputs))
	for _, in := range inputs {
		text := strings.TrimSpace(in.Text)
		if text == "" {
			summary.DroppedEmpty++
			continue
		}
		h := utils.ContentHash(text)
		if seen[h] {
			summary.DroppedDuplicates++
			continue
		}
		seen[h] = true
		id := in.ID
		if id == "" {
			id = uuid.New().String()
		}
		md := in.Metadata.Clone()
		docs = append(docs, &models.Document{ID: id, Text: text, Metadata: md})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: all documents empty or duplicates", ErrInvalidInput)
	}
	return docs, nil
}

func (e *Engine) newChunker() *chunker.Chunker {
	return chunker.New(chunker.Options{
		TargetSize: e.cfg.Chunking.TargetSize,
		Overlap:    e.cfg.Chunking.Overlap,
		MinSize:    e.cfg.Chunking.MinSize,
		BatchSize:  e.cfg.Chunking.BatchSize,
	})
}

func (e *Engine) buildIndices(ds *models.Dataset) (*hybrid.Index, *hybrid.Index, error) {
	dims := e.embedder.Dimensions()

	parentIndex, err := hybrid.New(dims)
	if err != nil {
		return nil, nil, err
	}
	parentEntries := make([]hybrid.Entry, len(ds.Documents))
	for i, d := range ds.Documents {
		parentEntries[i] = hybrid.Entry{
			ID:       d.ID,
			Vector:   ds.ParentVectors[i],
			Text:     d.Text,
			Metadata: d.Metadata,
		}
	}
	if err := parentIndex.Build(parentEntries); err != nil {
		return nil, nil, fmt.Errorf("document index: %w", err)
	}

	chunkIndex, err := hybrid.New(dims)
	if err != nil {
		return nil, nil, err
	}
	chunkEntries := make([]hybrid.Entry, len(ds.Chunks))
	for i, ch := range ds.Chunks {
		chunkEntries[i] = hybrid.Entry{
			ID:     ch.ID,
			Vector: ds.ChunkVectors[i],
			Text:   ch.Text,
		}
	}
	if err := chunkIndex.Build(chunkEntries); err != nil {
		return nil, nil, fmt.Errorf("chunk index: %w", err)
	}

	return parentIndex, chunkIndex, nil
}

// clusterDocuments labels documents from the clustering projection and merges
// the outcome into document metadata and the dataset's cluster list.
func (e *Engine) clusterDocuments(ctx context.Context, ds *models.Dataset, coords [][]float64, summary *models.ProcessingSummary, progress ProgressFunc) error {
	result, err := e.clusterer.Cluster(ctx, coords, cluster.Options{
		MinClusterSize: e.cfg.Cluster.MinClusterSize,
		MinSamples:     e.cfg.Cluster.MinSamples,
	}, func(f float64) { progress(StageCluster, f) })
	if err != nil {
		return err
	}

	labels, probs, warnings := cluster.Normalize(result.Labels, result.Probabilities, len(ds.Documents))
	summary.Warnings = append(summary.Warnings, warnings...)
	summary.Warnings = append(summary.Warnings, result.Warnings...)

	ds.Clusters = cluster.Summarize(labels, probs, ds.Documents)
	summary.ClusterCount = len(ds.Clusters)
	shortLabels := make(map[int]string, len(ds.Clusters))
	for _, c := range ds.Clusters {
		shortLabels[c.Label] = c.ShortLabel
	}
	for i, d := range ds.Documents {
		if d.Metadata == nil {
			d.Metadata = make(models.Metadata)
		}
		_ = d.Metadata.Set("cluster", labels[i])
		_ = d.Metadata.Set("cluster_probability", probs[i])
		if labels[i] == models.NoiseLabel {
			summary.NoiseCount++
			continue
		}
		_ = d.Metadata.Set("cluster_label", shortLabels[labels[i]])
	}
	return nil
}

func projectionPoints(docs []*models.Document, coords [][]float64) []models.ProjectionPoint {
	points := make([]models.ProjectionPoint, len(coords))
	for i, c := range coords {
		points[i] = models.ProjectionPoint{EntityID: docs[i].ID, Coordinates: c}
	}
	return points
}

func (e *Engine) nextVersion() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.current == nil {
		return 1
	}
	return e.current.dataset.Version + 1
}

// publish registers the snapshot under its dataset ID and makes it current.
// The previous current snapshot stays open in the registry, so handles
// holding it keep working.
func (e *Engine) publish(s *snapshot) {
	e.mu.Lock()
	old := e.datasets[s.dataset.ID]
	e.datasets[s.dataset.ID] = s
	e.current = s
	e.mu.Unlock()
	if old != nil {
		_ = old.parentIndex.Close()
		_ = old.chunkIndex.Close()
	}
}

func (e *Engine) snapshot() (*snapshot, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.current == nil {
		return nil, ErrNoDataset
	}
	return e.current, nil
}

// Dataset returns the current dataset, or an error when nothing has been
// processed or loaded yet.
func (e *Engine) Dataset() (*models.Dataset, error) {
	s, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return s.dataset, nil
}

// Search runs a document-tier query against the current snapshot. Lexical is
// the default; semantic search embeds the query in query mode and ranks by
// cosine similarity.
func (e *Engine) Search(ctx context.Context, q *models.SearchQuery) ([]*models.SearchResult, error) {
	s, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return e.searchSnapshot(ctx, s, q)
}

func (e *Engine) searchSnapshot(ctx context.Context, s *snapshot, q *models.SearchQuery) ([]*models.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var results []*models.SearchResult
	switch q.Type {
	case models.SearchSemantic:
		vec, err := e.embedder.EmbedQuery(ctx, q.Query)
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
		hits, err := s.parentIndex.SearchVector(vec, q.K, q.MinScore)
		if err != nil {
			return nil, err
		}
		for i, h := range hits {
			results = append(results, e.toSearchResult(s.dataset, h.ID, h.Score, i+1))
		}
	default:
		hits, err := s.parentIndex.SearchLexical(ctx, q.Query, q.K)
		if err != nil {
			return nil, err
		}
		for i, h := range hits {
			results = append(results, e.toSearchResult(s.dataset, h.ID, h.Score, i+1))
		}
	}
	return results, nil
}

func (e *Engine) toSearchResult(ds *models.Dataset, id string, score float64, rank int) *models.SearchResult {
	r := &models.SearchResult{ID: id, Score: score, Rank: rank}
	if doc := ds.DocumentByID(id); doc != nil {
		r.Text = doc.Text
		r.Metadata = doc.Metadata
	}
	return r
}

// VisualizationData returns the 2D map snapshot for the current dataset.
func (e *Engine) VisualizationData() (*models.VisualizationData, error) {
	s, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return visualizationData(s)
}

func visualizationData(s *snapshot) (*models.VisualizationData, error) {
	ds := s.dataset
	labels := make([]int, len(ds.Projection2D))
	for i, p := range ds.Projection2D {
		labels[i] = models.NoiseLabel
		if doc := ds.DocumentByID(p.EntityID); doc != nil {
			if lbl, ok := doc.Metadata.Int("cluster"); ok {
				labels[i] = lbl
			}
		}
	}
	return &models.VisualizationData{
		DatasetID: ds.ID,
		Version:   ds.Version,
		Points:    ds.Projection2D,
		Labels:    labels,
		Clusters:  ds.Clusters,
		Summary:   ds.Summary,
	}, nil
}

// SaveDataset exports the current dataset to the blob store under its ID.
func (e *Engine) SaveDataset(ctx context.Context) (string, error) {
	s, err := e.snapshot()
	if err != nil {
		return "", err
	}
	data, err := store.Export(s.dataset)
	if err != nil {
		return "", stageErr(StageSave, err)
	}
	if err := e.blobs.Put(ctx, s.dataset.ID, "archive", data); err != nil {
		return "", stageErr(StageSave, err)
	}
	return s.dataset.ID, nil
}

// LoadDataset restores a dataset from the blob store and rebuilds its search
// indices from the stored vectors, publishing it as the current snapshot.
func (e *Engine) LoadDataset(ctx context.Context, datasetID string) error {
	data, err := e.blobs.Get(ctx, datasetID, "archive")
	if err != nil {
		return fmt.Errorf("failed to load dataset %s: %w", datasetID, err)
	}
	return e.ImportDataset(data)
}

// ImportDataset decodes an exported archive, rebuilds indices, and publishes
// the dataset as the current snapshot.
func (e *Engine) ImportDataset(data []byte) error {
	ds, err := store.Import(data)
	if err != nil {
		return err
	}
	parentIndex, chunkIndex, err := e.buildIndices(ds)
	if err != nil {
		return fmt.Errorf("failed to rebuild indices: %w", err)
	}
	e.publish(&snapshot{dataset: ds, parentIndex: parentIndex, chunkIndex: chunkIndex})
	return nil
}

// ExportDataset serializes the current dataset into the archive format.
func (e *Engine) ExportDataset() ([]byte, error) {
	s, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return store.Export(s.dataset)
}
