package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/chizu/internal/models"
	"github.com/hyperjump/chizu/internal/pipeline"
)

type processRequest struct {
	Name      string                 `json:"name"`
	Documents []models.DocumentInput `json:"documents"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("process request", zap.String("name", req.Name), zap.Int("documents", len(req.Documents)))
	summary, err := s.engine.ProcessDataset(r.Context(), req.Name, req.Documents, nil)
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidInput) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("processing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.String("type", string(query.Type)))
	results, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoDataset) {
			s.respondError(w, http.StatusConflict, "no dataset processed yet")
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

// handleAsk streams the answer as server-sent events: "token" events carry
// text fragments, a final "done" event carries the full answer with sources.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	answer, err := s.engine.AskQuestionStream(r.Context(), &req, func(fragment string) error {
		data, err := json.Marshal(map[string]string{"text": fragment})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: token\ndata: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
		flusher.Flush()
		return
	}

	data, err := json.Marshal(answer)
	if err != nil {
		s.logger.Error("ask response encoding failed", zap.Error(err))
		return
	}
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

func (s *Server) handleVisualization(w http.ResponseWriter, r *http.Request) {
	viz, err := s.engine.VisualizationData()
	if err != nil {
		if errors.Is(err, pipeline.ErrNoDataset) {
			s.respondError(w, http.StatusConflict, "no dataset processed yet")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, viz)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ds, err := s.engine.Dataset()
	if err != nil {
		s.respondJSON(w, http.StatusOK, map[string]any{"dataset": nil})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"dataset": map[string]any{
			"id":        ds.ID,
			"name":      ds.Name,
			"version":   ds.Version,
			"documents": len(ds.Documents),
			"chunks":    len(ds.Chunks),
			"clusters":  len(ds.Clusters),
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
