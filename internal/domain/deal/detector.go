// Package deal detects price drops and maintains Deal records. The detector
// is the sole writer of deals.
package deal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dealwatch/internal/adapters/repository"
	"dealwatch/internal/domain/model"
	"dealwatch/pkg/logger"
	"dealwatch/pkg/metrics"
)

// Superlative badge windows.
const (
	window14Days  = 14 * 24 * time.Hour
	window1Month  = 30 * 24 * time.Hour
	window3Months = 90 * 24 * time.Hour
	window6Months = 180 * 24 * time.Hour

	defaultMinDiscount = 0.15
)

// Store is the slice of the product store the detector needs.
type Store interface {
	ActiveDeal(ctx context.Context, productID uint) (model.Deal, error)
	CreateDeal(ctx context.Context, d *model.Deal) error
	SaveDeal(ctx context.Context, d *model.Deal) error
	MinPriceSince(ctx context.Context, productID uint, since time.Time) (int64, bool, error)
}

// Notifier enqueues one deal id for the external dispatcher.
type Notifier interface {
	EnqueueDeal(ctx context.Context, dealID string, productID uint, discountPct float64) error
}

// Outcome names the transition applied by one detection pass.
type Outcome string

const (
	OutcomeNone        Outcome = "none"
	OutcomeCreated     Outcome = "created"
	OutcomeUpdated     Outcome = "updated"
	OutcomeDeactivated Outcome = "deactivated"
)

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithMinDiscount overrides the deal threshold (fraction of list price).
func WithMinDiscount(f float64) Option {
	return func(d *Detector) {
		if f > 0 && f < 1 {
			d.minDiscount = f
		}
	}
}

// WithNow overrides the clock; tests pin it.
func WithNow(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// Detector applies deal transitions after every successful refresh.
type Detector struct {
	store       Store
	notifier    Notifier
	minDiscount float64
	now         func() time.Time
	logger      logger.Logger
}

// NewDetector creates a Detector with configuration options.
func NewDetector(store Store, notifier Notifier, opts ...Option) *Detector {
	d := &Detector{
		store:       store,
		notifier:    notifier,
		minDiscount: defaultMinDiscount,
		now:         time.Now,
		logger:      logger.Get().Named("deal-detector"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Process compares the product's refreshed price against its deal state and
// applies at most one transition. Re-processing the same refreshed product is
// idempotent: a created deal is updated, never re-created or re-notified.
func (d *Detector) Process(ctx context.Context, p model.Product) (Outcome, error) {
	qualifies := p.IsAvailable &&
		p.ListPrice > 0 &&
		p.CurrentPrice > 0 &&
		discountFraction(p.ListPrice, p.CurrentPrice) >= d.minDiscount

	active, err := d.store.ActiveDeal(ctx, p.ID)
	hasActive := err == nil
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return OutcomeNone, fmt.Errorf("load active deal: %w", err)
	}

	switch {
	case !hasActive && qualifies:
		return d.create(ctx, p)
	case hasActive && qualifies:
		return d.update(ctx, p, active)
	case hasActive && !qualifies:
		return d.deactivate(ctx, active)
	default:
		return OutcomeNone, nil
	}
}

func (d *Detector) create(ctx context.Context, p model.Product) (Outcome, error) {
	badges, err := d.badges(ctx, p)
	if err != nil {
		return OutcomeNone, err
	}

	// notified_at is written with the row itself so a duplicate delivery of
	// the same check result lands on the update path and cannot re-notify.
	notified := d.now()
	deal := model.Deal{
		ID:                 uuid.NewString(),
		ProductID:          p.ID,
		OriginalPrice:      p.ListPrice,
		DealPrice:          p.CurrentPrice,
		DiscountPercentage: discountFraction(p.ListPrice, p.CurrentPrice) * 100,
		Currency:           p.Currency,
		IsActive:           true,
		NotifiedAt:         &notified,
		IsCheapest14Days:   badges[0],
		IsCheapest1Month:   badges[1],
		IsCheapest3Months:  badges[2],
		IsCheapest6Months:  badges[3],
	}
	if err := d.store.CreateDeal(ctx, &deal); err != nil {
		return OutcomeNone, err
	}
	metrics.RecordDealTransition(string(OutcomeCreated))

	if err := d.notifier.EnqueueDeal(ctx, deal.ID, p.ID, deal.DiscountPercentage); err != nil {
		// The marker already guards against a second enqueue; delivery of
		// this one is the dispatcher's concern.
		d.logger.Warn(ctx, "notification enqueue failed",
			logger.String("deal_id", deal.ID),
			logger.Error(err),
		)
		return OutcomeCreated, nil
	}
	metrics.RecordNotificationEnqueued()

	d.logger.Info(ctx, "deal created",
		logger.String("deal_id", deal.ID),
		logger.Uint("product_id", p.ID),
		logger.Float64("discount_pct", deal.DiscountPercentage),
	)
	return OutcomeCreated, nil
}

func (d *Detector) update(ctx context.Context, p model.Product, deal model.Deal) (Outcome, error) {
	badges, err := d.badges(ctx, p)
	if err != nil {
		return OutcomeNone, err
	}

	deal.OriginalPrice = p.ListPrice
	deal.DealPrice = p.CurrentPrice
	deal.DiscountPercentage = discountFraction(p.ListPrice, p.CurrentPrice) * 100
	deal.IsCheapest14Days = badges[0]
	deal.IsCheapest1Month = badges[1]
	deal.IsCheapest3Months = badges[2]
	deal.IsCheapest6Months = badges[3]

	if err := d.store.SaveDeal(ctx, &deal); err != nil {
		return OutcomeNone, err
	}
	metrics.RecordDealTransition(string(OutcomeUpdated))
	return OutcomeUpdated, nil
}

func (d *Detector) deactivate(ctx context.Context, deal model.Deal) (Outcome, error) {
	deal.IsActive = false
	if err := d.store.SaveDeal(ctx, &deal); err != nil {
		return OutcomeNone, err
	}
	metrics.RecordDealTransition(string(OutcomeDeactivated))

	d.logger.Info(ctx, "deal deactivated",
		logger.String("deal_id", deal.ID),
		logger.Uint("product_id", deal.ProductID),
	)
	return OutcomeDeactivated, nil
}

// badges computes the superlative flags: current price at or below the
// minimum observed in each trailing window. A window with no samples yields
// no badge.
func (d *Detector) badges(ctx context.Context, p model.Product) ([4]bool, error) {
	var out [4]bool
	windows := [4]time.Duration{window14Days, window1Month, window3Months, window6Months}
	for i, w := range windows {
		min, ok, err := d.store.MinPriceSince(ctx, p.ID, d.now().Add(-w))
		if err != nil {
			return out, fmt.Errorf("badge window %s: %w", w, err)
		}
		out[i] = ok && p.CurrentPrice <= min
	}
	return out, nil
}

func discountFraction(listPrice, currentPrice int64) float64 {
	if listPrice <= 0 {
		return 0
	}
	return float64(listPrice-currentPrice) / float64(listPrice)
}
