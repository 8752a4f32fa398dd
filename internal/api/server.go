// Package api provides the read-only observation HTTP API served while
// the simulation runs: market board, agent states, event log, and
// Prometheus metrics. It never mutates simulation state.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/caio-almeid4/marketplace-simulation/internal/engine"
	"github.com/caio-almeid4/marketplace-simulation/internal/metrics"
	"github.com/caio-almeid4/marketplace-simulation/internal/persistence"
)

// Server serves simulation state over HTTP.
type Server struct {
	Sched *engine.Scheduler
	DB    *persistence.DB
	Port  int
}

// Start begins serving in a goroutine. Errors other than a clean close
// are logged, never fatal — the simulation does not depend on the API.
func (s *Server) Start() {
	r := chi.NewRouter()

	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/market", s.handleMarket)
	r.Get("/api/v1/agents", s.handleAgents)
	r.Get("/api/v1/events", s.handleEvents)
	r.Get("/api/v1/trades/recent", s.handleRecentTrades)
	r.Handle("/metrics", metrics.Handler())

	addr := fmt.Sprintf(":%d", s.Port)
	go func() {
		slog.Info("observation API listening", "addr", addr)
		if err := http.ListenAndServe(addr, r); err != nil {
			slog.Error("observation API stopped", "error", err)
		}
	}()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	bankrupt, dead := s.Sched.Terminated()
	writeJSON(w, map[string]any{
		"round":            s.Sched.Round(),
		"bankrupt":         bankrupt,
		"dead":             dead,
		"upkeep_collected": s.Sched.UpkeepCollected(),
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sched.MarketView())
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sched.Agents())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, s.Sched.Events(limit))
}

func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "persistence disabled", http.StatusNotFound)
		return
	}
	rows, err := s.DB.RecentTrades(50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
