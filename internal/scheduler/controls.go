package scheduler

import (
	"sync"

	"dealwatch/internal/domain/tier"
)

// Controls is the operator switchboard read once at the top of every cycle.
// Flips apply on the next cycle boundary, never mid-cycle.
type Controls struct {
	mu       sync.RWMutex
	paused   bool
	disabled map[int]bool
}

// NewControls creates the switchboard with every tier enabled.
func NewControls() *Controls {
	return &Controls{disabled: make(map[int]bool)}
}

// SetPaused pauses or resumes scheduling. In-flight work is unaffected.
func (c *Controls) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = paused
}

// Paused reports whether scheduling is paused.
func (c *Controls) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// SetTierEnabled enables or disables one tier. Unknown levels are ignored.
func (c *Controls) SetTierEnabled(level int, enabled bool) {
	if _, ok := tier.ByLevel(level); !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled[level] = !enabled
}

// TierEnabled reports whether one tier participates in selection.
func (c *Controls) TierEnabled(level int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled[level]
}

// snapshot captures the switchboard for one cycle.
func (c *Controls) snapshot() (paused bool, disabled map[int]bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int]bool, len(c.disabled))
	for k, v := range c.disabled {
		out[k] = v
	}
	return c.paused, out
}
