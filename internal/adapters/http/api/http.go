// Package api declares the ops HTTP surface: health, stats, operator
// controls, and prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"dealwatch/internal/scheduler"
)

// Dependencies bundles what the handlers need from the running service.
type Dependencies interface {
	// Controls exposes the scheduler switchboard.
	Controls() *scheduler.Controls

	// LastCycle returns stats for the most recent scheduler cycle.
	LastCycle() scheduler.CycleStats

	// QueueDepth returns per-lane queue depths, lane 0 first.
	QueueDepth(ctx context.Context) []int

	// DueStats returns due-but-unclaimed counts per tier.
	DueStats(ctx context.Context) (map[int]int64, error)
}

// Server wires the ops HTTP routes.
type Server struct {
	healthHandler   *HealthHandler
	metricsHandler  *MetricsHandler
	statsHandler    *StatsHandler
	controlsHandler *ControlsHandler
}

// NewServer creates the ops server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		metricsHandler:  NewMetricsHandler(),
		statsHandler:    NewStatsHandler(deps),
		controlsHandler: NewControlsHandler(deps),
	}
}

// Register attaches all routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("/metrics", s.metricsHandler.HandleMetrics)
	mux.HandleFunc("/stats", s.statsHandler.HandleStats)
	mux.HandleFunc("/controls", s.controlsHandler.HandleControls)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
