// Package service assembles the tracking pipeline: store, priority-lane
// queue, acquisition channels, deal detector, worker pool, and scheduler.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"dealwatch/internal/adapters/channel"
	"dealwatch/internal/adapters/mq/queue"
	workerpool "dealwatch/internal/adapters/mq/worker"
	"dealwatch/internal/adapters/notify"
	"dealwatch/internal/adapters/repository"
	"dealwatch/internal/config"
	"dealwatch/internal/domain/deal"
	"dealwatch/internal/domain/scoring"
	"dealwatch/internal/domain/tier"
	"dealwatch/internal/scheduler"
	"dealwatch/pkg/logger"
)

// Service wires the components and owns their lifecycle.
type Service struct {
	mu sync.Mutex

	cfg        *config.Config
	store      repository.Store
	dispatcher notify.Dispatcher

	queue     *queue.LaneQueue
	channels  *channel.Selector
	detector  *deal.Detector
	scorer    *scoring.Scorer
	pool      *workerpool.Pool
	scheduler *scheduler.Scheduler
	controls  *scheduler.Controls

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithChannelSelector overrides the acquisition channels; tests inject
// stubs here.
func WithChannelSelector(sel *channel.Selector) Option {
	return func(s *Service) {
		if sel != nil {
			s.channels = sel
		}
	}
}

// New builds the pipeline from configuration. Nothing runs until Start.
func New(cfg *config.Config, store repository.Store, dispatcher notify.Dispatcher, opts ...Option) *Service {
	s := &Service{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.channels == nil {
		limiter := rate.NewLimiter(rate.Limit(cfg.APIRatePerSec), cfg.APIBurst)
		api := channel.NewAPIChannel(cfg.APIBaseURL, cfg.APIKey, limiter,
			channel.WithWaitTimeout(time.Duration(cfg.RateWaitTimeoutMS)*time.Millisecond))
		scrape := channel.NewScrapeChannel(cfg.ScrapeBaseURL)
		s.channels = channel.NewSelector(api, scrape)
	}

	s.queue = queue.NewLaneQueue(
		queue.WithLaneCount(tier.LaneCount),
		queue.WithLaneDepth(cfg.LaneDepth),
	)

	s.scorer = scoring.NewScorer(scoring.WithWeights(scoring.Weights{
		Deal:       cfg.DealWeight,
		Volatility: cfg.VolatilityWeight,
		Popularity: cfg.PopularityWeight,
		Recency:    cfg.RecencyWeight,
	}))

	s.detector = deal.NewDetector(store, dispatcher,
		deal.WithMinDiscount(cfg.MinDiscount))

	s.pool = workerpool.NewPool(cfg.WorkerCount, s.queue, store, s.channels, s.detector, s.scorer,
		workerpool.WithMaxAttempts(cfg.MaxAttempts),
		workerpool.WithBackoffBase(time.Duration(cfg.BackoffBaseMS)*time.Millisecond),
		workerpool.WithCheckTimeout(time.Duration(cfg.CheckTimeoutMS)*time.Millisecond),
		workerpool.WithFallbackThreshold(cfg.FallbackThreshold),
	)

	s.controls = scheduler.NewControls()
	s.controls.SetPaused(cfg.Paused)
	for _, t := range tier.All() {
		if cfg.TierDisabled(t.Level) {
			s.controls.SetTierEnabled(t.Level, false)
		}
	}

	cycle := time.Duration(cfg.CycleIntervalSec) * time.Second
	// The cycle budget mirrors what the token bucket can actually serve so
	// selection cannot outrun acquisition.
	budget := int(cfg.APIRatePerSec * cycle.Seconds())
	s.scheduler = scheduler.NewScheduler(store, s.queue, s.controls,
		scheduler.WithInterval(cycle),
		scheduler.WithBudget(budget),
	)

	return s
}

// Start launches the worker pool and the scheduler.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("service already started")
	}
	s.started = true

	s.pool.Start(ctx)
	go s.scheduler.Run(ctx)

	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.cfg.WorkerCount),
		logger.Int("cycle_interval_sec", s.cfg.CycleIntervalSec),
	)
	return nil
}

// Stop shuts the pipeline down front to back: stop selecting, stop
// accepting, drain the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	if err := s.scheduler.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "scheduler shutdown", logger.Error(err))
	}
	if err := s.queue.Close(); err != nil {
		s.logger.Warn(ctx, "queue close", logger.Error(err))
	}
	if err := s.pool.Shutdown(ctx); err != nil {
		return fmt.Errorf("worker pool shutdown: %w", err)
	}

	s.logger.Info(ctx, "service stopped")
	return nil
}

// Controls exposes the operator switchboard for the ops API.
func (s *Service) Controls() *scheduler.Controls { return s.controls }

// LastCycle returns the most recent scheduler cycle stats.
func (s *Service) LastCycle() scheduler.CycleStats { return s.scheduler.LastCycle() }

// QueueDepth returns per-lane queue depths, lane 0 first.
func (s *Service) QueueDepth(ctx context.Context) []int {
	out := make([]int, tier.LaneCount)
	for i := range out {
		out[i] = s.queue.LaneLen(ctx, i)
	}
	return out
}

// DueStats returns due-but-unclaimed counts per tier.
func (s *Service) DueStats(ctx context.Context) (map[int]int64, error) {
	return s.store.DueStats(ctx)
}
