// Package http serves the operational surface: health, run states and
// Prometheus metrics. Scoring itself is driven by the CLI and scheduler,
// not by this server.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/stockrank/stockrank/internal/data/providers"
	"github.com/stockrank/stockrank/internal/metrics"
	"github.com/stockrank/stockrank/internal/scan"
)

// Server exposes health and metrics over HTTP.
type Server struct {
	server   *http.Server
	breakers *providers.BreakerManager
	tracker  *scan.Tracker
}

// NewServer builds the router. breakers and tracker may be nil; the
// corresponding sections are omitted from health output.
func NewServer(addr string, breakers *providers.BreakerManager, tracker *scan.Tracker) *Server {
	s := &Server{
		breakers: breakers,
		tracker:  tracker,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/runs", s.handleRuns).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type healthResponse struct {
	Status    string                             `json:"status"`
	Timestamp time.Time                          `json:"timestamp"`
	Providers map[string]providers.BreakerStatus `json:"providers,omitempty"`
	Runs      map[string]scan.State              `json:"active_runs,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	}
	if s.breakers != nil {
		resp.Providers = s.breakers.Status()
		if !s.breakers.Healthy() {
			resp.Status = "degraded"
		}
	}
	if s.tracker != nil {
		resp.Runs = s.tracker.Active()
	}

	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs := map[string]scan.State{}
	if s.tracker != nil {
		runs = s.tracker.Active()
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode HTTP response")
	}
}
