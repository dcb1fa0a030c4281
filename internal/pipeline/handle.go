package pipeline

import (
	"context"
	"sort"

	"github.com/hyperjump/chizu/internal/models"
)

// Handle is an explicit reference to one open dataset. A handle pins its
// snapshot: queries through it keep answering against the same data even
// while a reprocess publishes a newer snapshot, so several datasets can be
// queried concurrently.
type Handle struct {
	eng  *Engine
	snap *snapshot
}

// Open returns a handle for the dataset with the given ID.
func (e *Engine) Open(datasetID string) (*Handle, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.datasets[datasetID]
	if !ok {
		return nil, ErrUnknownDataset
	}
	return &Handle{eng: e, snap: s}, nil
}

// Current returns a handle pinned to the current snapshot.
func (e *Engine) Current() (*Handle, error) {
	s, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return &Handle{eng: e, snap: s}, nil
}

// OpenDatasets lists the IDs of all open datasets, sorted.
func (e *Engine) OpenDatasets() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.datasets))
	for id := range e.datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dataset returns the dataset this handle is pinned to.
func (h *Handle) Dataset() *models.Dataset {
	return h.snap.dataset
}

// Search runs a document-tier query against this handle's dataset.
func (h *Handle) Search(ctx context.Context, q *models.SearchQuery) ([]*models.SearchResult, error) {
	return h.eng.searchSnapshot(ctx, h.snap, q)
}

// AskQuestion answers a question against this handle's dataset.
func (h *Handle) AskQuestion(ctx context.Context, req *models.AskRequest) (*models.Answer, error) {
	return h.eng.askSnapshot(ctx, h.snap, req)
}

// AskQuestionStream is the streaming variant of AskQuestion.
func (h *Handle) AskQuestionStream(ctx context.Context, req *models.AskRequest, emit func(fragment string) error) (*models.Answer, error) {
	return h.eng.askStreamSnapshot(ctx, h.snap, req, emit)
}

// VisualizationData returns the 2D map snapshot for this handle's dataset.
func (h *Handle) VisualizationData() (*models.VisualizationData, error) {
	return visualizationData(h.snap)
}
