package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"dealwatch/internal/domain/tier"
)

// ControlsHandler reads and flips the scheduler switchboard. Flips apply on
// the next cycle boundary.
type ControlsHandler struct {
	deps Dependencies
}

// NewControlsHandler creates a new controls handler.
func NewControlsHandler(deps Dependencies) *ControlsHandler {
	return &ControlsHandler{deps: deps}
}

type controlsState struct {
	Paused bool         `json:"paused"`
	Tiers  map[int]bool `json:"tiers"`
}

// controlsRequest carries one or more flips; nil fields are left untouched.
type controlsRequest struct {
	Paused  *bool `json:"paused,omitempty"`
	Tier    *int  `json:"tier,omitempty"`
	Enabled *bool `json:"enabled,omitempty"`
}

func (c controlsRequest) validate() error {
	if c.Paused == nil && c.Tier == nil {
		return errors.New("nothing to change")
	}
	if (c.Tier == nil) != (c.Enabled == nil) {
		return errors.New("tier and enabled must be set together")
	}
	if c.Tier != nil {
		if _, ok := tier.ByLevel(*c.Tier); !ok {
			return errors.New("unknown tier")
		}
	}
	return nil
}

// HandleControls handles GET and POST /controls.
func (h *ControlsHandler) HandleControls(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.state())
	case http.MethodPost:
		h.apply(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	}
}

func (h *ControlsHandler) apply(w http.ResponseWriter, r *http.Request) {
	var req controlsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	controls := h.deps.Controls()
	if req.Paused != nil {
		controls.SetPaused(*req.Paused)
	}
	if req.Tier != nil {
		controls.SetTierEnabled(*req.Tier, *req.Enabled)
	}

	writeJSON(w, http.StatusOK, h.state())
}

func (h *ControlsHandler) state() controlsState {
	controls := h.deps.Controls()
	tiers := make(map[int]bool, tier.LaneCount)
	for _, t := range tier.All() {
		tiers[t.Level] = controls.TierEnabled(t.Level)
	}
	return controlsState{Paused: controls.Paused(), Tiers: tiers}
}
