package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/chizu/internal/config"
	"github.com/hyperjump/chizu/internal/embedding"
	"github.com/hyperjump/chizu/internal/generation"
	"github.com/hyperjump/chizu/internal/models"
	"github.com/hyperjump/chizu/internal/pipeline"
)

func testServer(t *testing.T) (*Server, *pipeline.Engine) {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Reduce.Iterations = 50
	cfg.Embedding.Dimensions = 16

	enc := embedding.NewMockEncoder(cfg.Embedding.Dimensions)
	engine, err := pipeline.NewEngine(cfg, enc, generation.NewMockGenerator())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = engine.Close() })

	return NewServer(engine, &cfg.Server, zap.NewNop()), engine
}

func processTestDataset(t *testing.T, engine *pipeline.Engine) {
	t.Helper()
	inputs := make([]models.DocumentInput, 9)
	topics := []string{
		"the printer jams when loading paper",
		"login fails with an expired token",
		"the invoice total is wrong",
	}
	for i := range inputs {
		inputs[i] = models.DocumentInput{
			ID:   fmt.Sprintf("doc-%d", i),
			Text: fmt.Sprintf("%s, report %d detail %d", topics[i%len(topics)], i, i*i),
		}
	}
	if _, err := engine.ProcessDataset(context.Background(), "tickets", inputs, nil); err != nil {
		t.Fatal(err)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandleProcessAndStatus(t *testing.T) {
	srv, _ := testServer(t)

	body, _ := json.Marshal(processRequest{
		Name: "tickets",
		Documents: []models.DocumentInput{
			{ID: "a", Text: "the printer jams when loading paper from the tray"},
			{ID: "b", Text: "login fails with an expired session token"},
			{ID: "c", Text: "the invoice total does not match the order"},
			{ID: "d", Text: "paper feed rollers need cleaning on this printer"},
			{ID: "e", Text: "password reset emails never arrive"},
			{ID: "f", Text: "the order page times out under load"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary models.ProcessingSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.DocumentCount != 6 {
		t.Errorf("expected 6 documents, got %d", summary.DocumentCount)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"documents":6`) {
		t.Errorf("status should report document count: %s", rec.Body.String())
	}
}

func TestHandleProcessRejectsEmpty(t *testing.T) {
	srv, _ := testServer(t)
	body, _ := json.Marshal(processRequest{Name: "empty"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty document list, got %d", rec.Code)
	}
}

func TestHandleSearch(t *testing.T) {
	srv, engine := testServer(t)
	processTestDataset(t, engine)

	body, _ := json.Marshal(models.SearchQuery{Query: "printer jams paper"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Results []*models.SearchResult `json:"results"`
		Count   int                    `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count == 0 {
		t.Error("search should find printer documents")
	}
}

func TestHandleSearchNoDataset(t *testing.T) {
	srv, _ := testServer(t)
	body, _ := json.Marshal(models.SearchQuery{Query: "anything"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 before processing, got %d", rec.Code)
	}
}

func TestHandleSearchBadBody(t *testing.T) {
	srv, _ := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleAskStreamsEvents(t *testing.T) {
	srv, engine := testServer(t)
	processTestDataset(t, engine)

	body, _ := json.Marshal(models.AskRequest{Question: "why does the printer jam"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected event stream, got %q", ct)
	}
	out := rec.Body.String()
	if !strings.Contains(out, "event: token") {
		t.Error("stream should contain token events")
	}
	if !strings.Contains(out, "event: done") {
		t.Error("stream should finish with a done event")
	}
}

func TestHandleVisualization(t *testing.T) {
	srv, engine := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/visualization", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 before processing, got %d", rec.Code)
	}

	processTestDataset(t, engine)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/visualization", nil)
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var viz models.VisualizationData
	if err := json.Unmarshal(rec.Body.Bytes(), &viz); err != nil {
		t.Fatal(err)
	}
	if viz.DatasetID == "" {
		t.Error("visualization should carry the dataset ID")
	}
	if len(viz.Labels) != len(viz.Points) {
		t.Errorf("labels must align with points: %d != %d", len(viz.Labels), len(viz.Points))
	}
}
