package scheduler

import (
	"time"

	"dealwatch/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithInterval sets the cycle cadence.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithBudget caps how many products one cycle may select across all tiers.
func WithBudget(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.budget = n
		}
	}
}

// WithNow overrides the clock; tests pin it.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}
