package e2e

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/chizu/internal/config"
	"github.com/hyperjump/chizu/internal/embedding"
	"github.com/hyperjump/chizu/internal/generation"
	"github.com/hyperjump/chizu/internal/models"
	"github.com/hyperjump/chizu/internal/pipeline"
	"github.com/hyperjump/chizu/internal/store"
)

const e2eDimensions = 16

func newE2EEngine(t *testing.T) *pipeline.Engine {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Embedding.Dimensions = e2eDimensions
	cfg.Reduce.Iterations = 50

	blobs, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "chizu.db"))
	if err != nil {
		t.Fatal(err)
	}

	enc := embedding.NewMockEncoder(e2eDimensions)
	engine, err := pipeline.NewEngine(cfg, enc, generation.NewMockGenerator(),
		pipeline.WithBlobStore(blobs))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

func TestE2E_LexicalSearchFindsExpectedDocuments(t *testing.T) {
	engine := newE2EEngine(t)
	ctx := context.Background()
	corpus := BuildCorpus()

	summary, err := engine.ProcessDataset(ctx, "tickets", corpus.Documents, nil)
	if err != nil {
		t.Fatal(err)
	}
	if summary.DocumentCount != len(corpus.Documents) {
		t.Fatalf("expected %d documents, got %d", len(corpus.Documents), summary.DocumentCount)
	}

	for _, qc := range corpus.Queries {
		results, err := engine.Search(ctx, &models.SearchQuery{Query: qc.Query, K: 3})
		if err != nil {
			t.Fatalf("search %q: %v", qc.Query, err)
		}
		found := false
		for _, r := range results {
			if r.ID == qc.ExpectedID {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("query %q: expected %s in top 3, got %v", qc.Query, qc.ExpectedID, resultIDs(results))
		}
	}
}

func TestE2E_AskProducesSourcedAnswer(t *testing.T) {
	engine := newE2EEngine(t)
	ctx := context.Background()
	corpus := BuildCorpus()

	if _, err := engine.ProcessDataset(ctx, "tickets", corpus.Documents, nil); err != nil {
		t.Fatal(err)
	}

	answer, err := engine.AskQuestion(ctx, &models.AskRequest{Question: "why do print jobs never complete"})
	if err != nil {
		t.Fatal(err)
	}
	if answer.Text == "" || len(answer.Sources) == 0 {
		t.Fatalf("answer should have text and sources: %+v", answer)
	}
	ds, _ := engine.Dataset()
	for _, src := range answer.Sources {
		if ds.ChunkByID(src.ChunkID) == nil {
			t.Errorf("source %s does not resolve to a chunk", src.ChunkID)
		}
		if ds.DocumentByID(src.ParentID) == nil {
			t.Errorf("source parent %s does not resolve to a document", src.ParentID)
		}
	}
}

func TestE2E_SaveLoadPreservesRetrieval(t *testing.T) {
	engine := newE2EEngine(t)
	ctx := context.Background()
	corpus := BuildCorpus()

	if _, err := engine.ProcessDataset(ctx, "tickets", corpus.Documents, nil); err != nil {
		t.Fatal(err)
	}
	id, err := engine.SaveDataset(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// Displace the snapshot, then restore from the blob store.
	displacement := []models.DocumentInput{
		{ID: "x", Text: "an unrelated document about gardening tomatoes in raised beds"},
		{ID: "y", Text: "another unrelated document about pruning fruit trees in winter"},
	}
	if _, err := engine.ProcessDataset(ctx, "other", displacement, nil); err != nil {
		t.Fatal(err)
	}
	if err := engine.LoadDataset(ctx, id); err != nil {
		t.Fatal(err)
	}

	results, err := engine.Search(ctx, &models.SearchQuery{Query: "printer jams paper tray", K: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("restored dataset should still answer queries")
	}
	for _, r := range results {
		if r.ID == "x" || r.ID == "y" {
			t.Errorf("restored dataset should not contain displacement documents, got %s", r.ID)
		}
	}
}

func TestE2E_MultibyteDocumentSurvivesRoundTrip(t *testing.T) {
	engine := newE2EEngine(t)
	ctx := context.Background()

	long := strings.Repeat("支払いサイクル内で顧客に二重請求が発生し、台帳に重複が記録されない問題です。", 40)
	docs := []models.DocumentInput{
		{ID: "jp-0", Text: long},
		{ID: "en-0", Text: "Recurring billing charged a customer twice in the same cycle and the duplicate charge does not appear in the ledger."},
	}
	if _, err := engine.ProcessDataset(ctx, "billing-jp", docs, nil); err != nil {
		t.Fatal(err)
	}
	before, _ := engine.Dataset()
	if len(before.Chunks) < 3 {
		t.Fatalf("long multibyte document should split into several chunks, got %d", len(before.Chunks))
	}
	for _, ch := range before.Chunks {
		if !utf8.ValidString(ch.Text) {
			t.Errorf("chunk %s contains invalid UTF-8", ch.ID)
		}
	}

	id, err := engine.SaveDataset(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.LoadDataset(ctx, id); err != nil {
		t.Fatal(err)
	}
	after, _ := engine.Dataset()
	if len(after.Chunks) != len(before.Chunks) {
		t.Fatalf("chunk count changed across round trip: %d != %d", len(after.Chunks), len(before.Chunks))
	}
	for i, ch := range after.Chunks {
		if ch.Text != before.Chunks[i].Text {
			t.Errorf("chunk %s text changed across round trip", ch.ID)
		}
	}
}

func resultIDs(results []*models.SearchResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}
