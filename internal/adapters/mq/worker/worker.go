// Package worker executes product checks pulled off the priority-lane
// queue: fetch through the product's channel, apply the refresh to the
// store, rescore, and run deal detection.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"dealwatch/internal/adapters/channel"
	"dealwatch/internal/adapters/mq/queue"
	"dealwatch/internal/adapters/repository"
	"dealwatch/internal/domain/deal"
	"dealwatch/internal/domain/model"
	"dealwatch/internal/domain/scoring"
	"dealwatch/internal/domain/tier"
	"dealwatch/pkg/logger"
	"dealwatch/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	defaultMaxAttempts      = 3
	defaultBackoffBase      = 500 * time.Millisecond
	defaultCheckTimeout     = 15 * time.Second
	defaultFallbackAfter    = 5

	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second

	trailingWindow = 30 * 24 * time.Hour
)

// State is the explicit check state machine:
// PENDING -> RUNNING -> {SUCCEEDED, UNAVAILABLE, RETRY..., FAILED}.
type State int

const (
	StatePending State = iota
	StateRunning
	StateRetry
	StateSucceeded
	StateUnavailable
	StateRateLimited
	StateDropped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateRetry:
		return "retry"
	case StateSucceeded:
		return "succeeded"
	case StateUnavailable:
		return "unavailable"
	case StateRateLimited:
		return "rate_limited"
	case StateDropped:
		return "dropped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Detector abstracts the deal detector invoked after a successful refresh.
type Detector interface {
	Process(ctx context.Context, p model.Product) (deal.Outcome, error)
}

// Queue defines how workers receive items.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Item
}

// Worker consumes the lane queue and refreshes one product per item.
type Worker struct {
	queue    Queue
	store    repository.Store
	channels *channel.Selector
	detector Detector
	scorer   *scoring.Scorer

	name              string
	maxAttempts       int
	backoffBase       time.Duration
	checkTimeout      time.Duration
	fallbackThreshold int
	now               func() time.Time

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, store repository.Store, channels *channel.Selector, detector Detector, scorer *scoring.Scorer, opts ...Option) *Worker {
	w := &Worker{
		queue:             q,
		store:             store,
		channels:          channels,
		detector:          detector,
		scorer:            scorer,
		name:              "worker",
		maxAttempts:       defaultMaxAttempts,
		backoffBase:       defaultBackoffBase,
		checkTimeout:      defaultCheckTimeout,
		fallbackThreshold: defaultFallbackAfter,
		now:               time.Now,
		shutdown:          make(chan struct{}),
		done:              make(chan struct{}),
		logger:            logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop until ctx is canceled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case it, ok := <-items:
			if !ok {
				return
			}
			state, err := w.Process(ctx, it)
			if err != nil {
				w.logger.Error(ctx, "check failed",
					logger.Uint("product_id", it.ProductID),
					logger.String("state", state.String()),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Process executes one work item through the state machine and returns its
// terminal state. Delivery is at-least-once: every write below is idempotent
// under duplicate processing.
func (w *Worker) Process(ctx context.Context, it queue.Item) (State, error) {
	start := w.now()
	state := StateRunning

	p, err := w.store.GetProduct(ctx, it.ProductID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordCheck(StateDropped.String(), w.since(start))
		return StateDropped, nil
	}
	if err != nil {
		return StateFailed, err
	}
	if !p.IsActive {
		// Relevance re-check: the item went stale in the queue.
		metrics.RecordCheck(StateDropped.String(), w.since(start))
		return StateDropped, nil
	}

	ch := w.channels.For(p.AcquisitionChannel)

	for attempt := 1; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, w.checkTimeout)
		quote, err := ch.Fetch(callCtx, p.ExternalID)
		cancel()

		switch {
		case err == nil:
			state, err = w.applyQuote(ctx, p, quote)
			metrics.RecordCheck(state.String(), w.since(start))
			return state, err

		case errors.Is(err, channel.ErrRateLimited):
			state, err = w.handleRateLimit(ctx, p)
			metrics.RecordCheck(state.String(), w.since(start))
			return state, err

		case errors.Is(err, channel.ErrNotFound):
			state, err = w.handleDelisted(ctx, p)
			metrics.RecordCheck(state.String(), w.since(start))
			return state, err

		case errors.Is(err, channel.ErrBadData):
			// Integrity rejection: keep prior state; the unadvanced
			// last_checked_at retries the item next cycle.
			metrics.RecordCheck(StateFailed.String(), w.since(start))
			return StateFailed, err

		default:
			// Transient failure: bounded exponential backoff.
			if attempt >= w.maxAttempts {
				metrics.RecordCheck(StateFailed.String(), w.since(start))
				return StateFailed, fmt.Errorf("check gave up after %d attempts: %w", attempt, err)
			}
			state = StateRetry
			metrics.RecordCheckRetry()
			w.logger.Debug(ctx, "transient failure, backing off",
				logger.Uint("product_id", p.ID),
				logger.Int("attempt", attempt),
				logger.Error(err),
			)
			if !w.sleep(ctx, w.backoffBase<<(attempt-1)) {
				return state, ctx.Err()
			}
		}
	}
}

// applyQuote writes the refresh, appends history on change, reruns deal
// detection, and reclassifies the product. Price writes are last-write-wins;
// the history insert is keyed by (product_id, recorded_at).
func (w *Worker) applyQuote(ctx context.Context, p model.Product, q model.Quote) (State, error) {
	// Relevance is re-checked immediately before the write.
	current, err := w.store.GetProduct(ctx, p.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return StateDropped, nil
	}
	if err != nil {
		return StateFailed, err
	}
	if !current.IsActive {
		return StateDropped, nil
	}

	checkedAt := w.now()
	if err := w.store.ApplyQuote(ctx, p.ID, q, checkedAt); err != nil {
		return StateFailed, err
	}

	changed := q.Price != current.CurrentPrice || q.Available != current.IsAvailable
	if changed {
		err := w.store.AppendPricePoint(ctx, model.PricePoint{
			ProductID:   p.ID,
			Price:       q.Price,
			IsAvailable: q.Available,
			RecordedAt:  checkedAt,
		})
		if err != nil {
			return StateFailed, err
		}
	}

	if p.AcquisitionChannel == model.ChannelAPI && current.RateLimitRejections > 0 {
		if err := w.store.ResetRateLimitRejections(ctx, p.ID); err != nil {
			return StateFailed, err
		}
	}

	refreshed := current
	refreshed.CurrentPrice = q.Price
	refreshed.ListPrice = q.ListPrice
	refreshed.Currency = q.Currency
	refreshed.IsAvailable = q.Available
	refreshed.Rating = q.Rating
	refreshed.ReviewCount = q.ReviewCount
	refreshed.LastCheckedAt = &checkedAt

	if _, err := w.detector.Process(ctx, refreshed); err != nil {
		return StateFailed, fmt.Errorf("deal detection: %w", err)
	}

	if err := w.reclassify(ctx, refreshed, checkedAt); err != nil {
		return StateFailed, err
	}

	if !q.Available {
		return StateUnavailable, nil
	}
	return StateSucceeded, nil
}

// reclassify recomputes the priority score and tier from the post-refresh
// state and persists them.
func (w *Worker) reclassify(ctx context.Context, p model.Product, now time.Time) error {
	prices, err := w.store.TrailingPrices(ctx, p.ID, now.Add(-trailingWindow))
	if err != nil {
		return err
	}

	hasDeal := true
	if _, err := w.store.ActiveDeal(ctx, p.ID); errors.Is(err, repository.ErrNotFound) {
		hasDeal = false
	} else if err != nil {
		return err
	}

	score := w.scorer.Score(scoring.Snapshot{
		HasActiveDeal:  hasDeal,
		TrailingPrices: prices,
		Rating:         p.Rating,
		ReviewCount:    p.ReviewCount,
		LastCheckedAt:  p.LastCheckedAt,
		Now:            now,
	})
	t := tier.Classify(score, hasDeal)
	return w.store.UpdateClassification(ctx, p.ID, score, t.Level)
}

// handleRateLimit counts the rejection and degrades the product to the
// scrape channel once past the threshold. No retry: last_checked_at stays
// unadvanced, so the item is simply due again next cycle.
func (w *Worker) handleRateLimit(ctx context.Context, p model.Product) (State, error) {
	count, err := w.store.IncRateLimitRejections(ctx, p.ID)
	if err != nil {
		return StateFailed, err
	}

	if count >= w.fallbackThreshold && p.AcquisitionChannel == model.ChannelAPI {
		if err := w.store.SetChannel(ctx, p.ID, model.ChannelScrape); err != nil {
			return StateFailed, err
		}
		metrics.RecordChannelFallback()
		w.logger.Info(ctx, "product degraded to scrape channel",
			logger.Uint("product_id", p.ID),
			logger.Int("rejections", count),
		)
	}
	return StateRateLimited, nil
}

// handleDelisted marks the product unavailable and lets the detector
// deactivate any active deal.
func (w *Worker) handleDelisted(ctx context.Context, p model.Product) (State, error) {
	checkedAt := w.now()
	if err := w.store.MarkUnavailable(ctx, p.ID, checkedAt); err != nil {
		return StateFailed, err
	}

	p.IsAvailable = false
	p.LastCheckedAt = &checkedAt
	if _, err := w.detector.Process(ctx, p); err != nil {
		return StateFailed, fmt.Errorf("deal detection: %w", err)
	}
	return StateUnavailable, nil
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	case <-w.shutdown:
		return false
	}
}

func (w *Worker) since(start time.Time) float64 {
	return w.now().Sub(start).Seconds()
}

// Pool manages a fixed set of workers sharing one queue.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates workerCount workers; non-positive counts fall back to a
// CPU-based default.
func NewPool(workerCount int, q Queue, store repository.Store, channels *channel.Selector, detector Detector, scorer *scoring.Scorer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		withName := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewWorker(q, store, channels, detector, scorer, withName...)
	}
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown stops the workers, waiting up to the pool timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		wCtx, wCancel := context.WithTimeout(shutdownCtx, workerShutdownTimeout)
		if err := w.Shutdown(wCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
		wCancel()
	}
	return nil
}
