package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"netwatch/internal/metrics"
	"netwatch/internal/realtime"
	"netwatch/internal/store"
)

// Server exposes the daemon status API: latest run, run history, aggregate
// stats and a websocket event stream.
type Server struct {
	httpServer   *http.Server
	store        store.RunStore
	events       *realtime.Broker
	log          *logrus.Logger
	historyLimit int
}

// New creates a configured HTTP server for the watchdog daemon.
func New(addr string, st store.RunStore, events *realtime.Broker, historyLimit int, log *logrus.Logger) *Server {
	if historyLimit <= 0 {
		historyLimit = 200
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer:   &http.Server{Addr: addr, Handler: mux},
		store:        st,
		events:       events,
		log:          log,
		historyLimit: historyLimit,
	}
	s.registerRoutes(mux)
	return s
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/events", s.handleEvents)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), store.ListOpts{Limit: 1})
	if err != nil {
		s.log.Errorf("list runs: %v", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if len(runs) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"run": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": runs[0]})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, s.historyLimit)
	runs, err := s.store.ListRuns(r.Context(), store.ListOpts{Limit: limit})
	if err != nil {
		s.log.Errorf("list runs: %v", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), store.ListOpts{Limit: s.historyLimit})
	if err != nil {
		s.log.Errorf("list runs: %v", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, metrics.ComputeRunSummary(runs))
}

func parseLimit(r *http.Request, fallback int) int {
	if fallback <= 0 {
		return fallback
	}
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > fallback {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
