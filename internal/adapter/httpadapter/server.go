// Package httpadapter exposes the state of a running acquisition over HTTP:
// liveness, readiness with fetch-unit progress, Prometheus metrics, and the
// month→year selection table once a construction has finished.
package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readinessTimeout = 2 * time.Second

// Acquisition is the orchestrator surface the endpoints report on.
type Acquisition interface {
	CheckReadiness(ctx context.Context) error
	Progress() (completed, failed int)
}

// Server serves the acquisition status endpoints. Selection starts empty and
// appears once PublishSelection is called.
type Server struct {
	acq    Acquisition
	logger *slog.Logger
	inner  *http.Server

	mu        sync.RWMutex
	selection map[int]int
}

// NewServer wires the status routes for one acquisition run.
func NewServer(addr string, acq Acquisition, logger *slog.Logger) *Server {
	s := &Server{acq: acq, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /selection", s.handleSelection)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.inner = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("status server starting", "addr", s.inner.Addr)
	return s.inner.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}

// ServeHTTP delegates to the route table, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.inner.Handler.ServeHTTP(w, r)
}

// PublishSelection makes a finished construction's month→year table
// available on /selection.
func (s *Server) PublishSelection(sel map[int]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, map[string]any{"status": "healthy"})
}

// handleReady reports not-ready until the first fetch unit lands, then ready
// plus the unit counters so progress is visible during long archive queues.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	completed, failed := s.acq.Progress()
	if err := s.acq.CheckReadiness(ctx); err != nil {
		s.respond(w, http.StatusServiceUnavailable, map[string]any{
			"status":          "not ready",
			"error":           err.Error(),
			"units_completed": completed,
			"units_failed":    failed,
		})
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"units_completed": completed,
		"units_failed":    failed,
	})
}

func (s *Server) handleSelection(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	sel := s.selection
	s.mu.RUnlock()

	if sel == nil {
		s.respond(w, http.StatusNotFound, map[string]any{
			"error": "no construction has finished yet",
		})
		return
	}
	s.respond(w, http.StatusOK, sel)
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("status response write failed", "error", err)
	}
}
