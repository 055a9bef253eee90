// Package api exposes the HTTP interface for the retrieval service.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stylistiq/fashionbot/internal/metrics"
	"github.com/stylistiq/fashionbot/internal/pipeline"
	"github.com/stylistiq/fashionbot/internal/retrieval"
)

// Server wires HTTP handlers to the retrieval service and the shared index.
type Server struct {
	router    chi.Router
	retrieval *retrieval.Service
	index     pipeline.VectorIndex
	status    *pipeline.StatusHolder
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(svc *retrieval.Service, index pipeline.VectorIndex, status *pipeline.StatusHolder, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		retrieval: svc,
		index:     index,
		status:    status,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/chat", s.chat)
		r.Get("/status", s.pipelineStatus)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.index.Count(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "index unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type chatRequest struct {
	Question string             `json:"question"`
	History  []pipeline.Message `json:"history"`
	K        int                `json:"k"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question required")
		return
	}
	answer := s.retrieval.Answer(r.Context(), req.Question, req.History, req.K)
	writeJSON(w, http.StatusOK, chatResponse{Answer: answer})
}

func (s *Server) pipelineStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.index.Count(r.Context())
	if err != nil {
		s.logger.Warn("index count failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "index unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           string(s.status.Get()),
		"products_indexed": count,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
