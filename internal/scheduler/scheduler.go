// Package scheduler drives the check cadence: every cycle it selects due
// products per tier under a global request budget and enqueues them onto
// the priority-lane queue.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dealwatch/internal/adapters/mq/queue"
	"dealwatch/internal/adapters/repository"
	"dealwatch/internal/domain/tier"
	"dealwatch/pkg/logger"
	"dealwatch/pkg/metrics"
)

// Default scheduler configuration constants.
const (
	defaultInterval = time.Minute
	defaultBudget   = 600 // checks per cycle across all tiers

	shutdownTimeout = 5 * time.Second
)

// Selector is the slice of the store the scheduler reads. Selection is
// read-only: a product is claimed by the worker's write, not here, so a
// crashed cycle loses nothing.
type Selector interface {
	FindDue(ctx context.Context, t tier.Tier, limit int) ([]repository.DueRef, error)
	DueStats(ctx context.Context) (map[int]int64, error)
}

// CycleStats summarizes the most recent completed cycle.
type CycleStats struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Enqueued  int           `json:"enqueued"`
	Dropped   int           `json:"dropped"`
	Budget    int           `json:"budget"`
	Backlog   map[int]int64 `json:"backlog"`
}

// Scheduler owns the cadence loop.
type Scheduler struct {
	store    Selector
	queue    queue.Queue
	controls *Controls

	interval time.Duration
	budget   int
	now      func() time.Time

	shutdown chan struct{}
	done     chan struct{}

	statsMu sync.RWMutex
	last    CycleStats

	logger logger.Logger
}

// NewScheduler creates a scheduler with configuration options.
func NewScheduler(store Selector, q queue.Queue, controls *Controls, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    store,
		queue:    q,
		controls: controls,
		interval: defaultInterval,
		budget:   defaultBudget,
		now:      time.Now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one cycle immediately, then one per interval until the
// context ends or Shutdown is called.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)

	s.RunCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// Shutdown stops the cadence loop. The current cycle finishes first.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	close(s.shutdown)

	waitCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	select {
	case <-s.done:
		return nil
	case <-waitCtx.Done():
		return fmt.Errorf("scheduler shutdown timed out: %w", waitCtx.Err())
	}
}

// RunCycle performs one selection pass. Tiers are visited best first so
// Tier1 spends its budget before Tier4 sees any. Controls are read once at
// the top; flips land on the next cycle.
func (s *Scheduler) RunCycle(ctx context.Context) {
	start := s.now()
	paused, disabled := s.controls.snapshot()

	if paused {
		s.logger.Debug(ctx, "cycle skipped: paused")
		s.recordStats(CycleStats{StartedAt: start, Budget: s.budget})
		return
	}

	remaining := s.budget
	enqueued, dropped := 0, 0

	for _, t := range tier.All() {
		if disabled[t.Level] {
			continue
		}
		if remaining <= 0 {
			metrics.RecordBudgetExhausted()
			s.logger.Warn(ctx, "cycle budget exhausted",
				logger.Int("tier", t.Level),
				logger.Int("budget", s.budget),
			)
			break
		}

		limit := t.MaxBatch
		if limit > remaining {
			limit = remaining
		}

		refs, err := s.store.FindDue(ctx, t, limit)
		if err != nil {
			metrics.RecordStoreError()
			s.logger.Error(ctx, "due selection failed", logger.Int("tier", t.Level), logger.Error(err))
			continue
		}
		remaining -= len(refs)

		for _, ref := range refs {
			ok := s.queue.Enqueue(ctx, queue.Item{
				ProductID:  ref.ID,
				ExternalID: ref.ExternalID,
				Tier:       t.Level,
				Channel:    t.Channel,
				Lane:       t.Lane,
				EnqueuedAt: start,
			})
			if ok {
				enqueued++
				continue
			}
			// Lane full: back-pressure, not an error. The product stays
			// due and is re-selected next cycle.
			dropped++
			metrics.RecordEnqueueDropped()
		}
	}

	backlog, err := s.store.DueStats(ctx)
	if err != nil {
		metrics.RecordStoreError()
		s.logger.Error(ctx, "due stats failed", logger.Error(err))
	} else {
		for level, count := range backlog {
			metrics.UpdateDueBacklog(level, count)
		}
	}

	dur := s.now().Sub(start)
	metrics.RecordCycle(dur.Seconds())
	s.recordStats(CycleStats{
		StartedAt: start,
		Duration:  dur,
		Enqueued:  enqueued,
		Dropped:   dropped,
		Budget:    s.budget,
		Backlog:   backlog,
	})

	s.logger.Info(ctx, "cycle complete",
		logger.Int("enqueued", enqueued),
		logger.Int("dropped", dropped),
		logger.Int("budget_left", remaining),
		logger.Duration("took", dur),
	)
}

// LastCycle returns stats for the most recent cycle.
func (s *Scheduler) LastCycle() CycleStats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.last
}

func (s *Scheduler) recordStats(cs CycleStats) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.last = cs
}
