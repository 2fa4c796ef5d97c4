package api

import (
	"net/http"

	"dealwatch/internal/scheduler"
)

// StatsHandler reports scheduler and queue state.
type StatsHandler struct {
	deps Dependencies
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps Dependencies) *StatsHandler {
	return &StatsHandler{deps: deps}
}

type statsResponse struct {
	DueBacklog map[int]int64        `json:"due_backlog"`
	QueueDepth []int                `json:"queue_depth"`
	LastCycle  scheduler.CycleStats `json:"last_cycle"`
}

// HandleStats handles GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}

	backlog, err := h.deps.DueStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats_unavailable", err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		DueBacklog: backlog,
		QueueDepth: h.deps.QueueDepth(r.Context()),
		LastCycle:  h.deps.LastCycle(),
	})
}
