// Package repository defines the product store interface and its gorm-backed
// implementation.
package repository

import (
	"context"
	"time"

	"dealwatch/internal/domain/model"
	"dealwatch/internal/domain/tier"
)

// DueRef is the bounded projection returned by the batch selector; enough to
// build a work item without materializing product rows.
type DueRef struct {
	ID         uint
	ExternalID string
}

// Store provides read/write access to products, price history, and deals.
type Store interface {
	// FindDue returns at most limit products of the tier that are active,
	// match the tier's channel, and are older than the tier's interval,
	// ordered oldest check first (never-checked first of all). Read-only:
	// claiming happens via enqueue, not here.
	FindDue(ctx context.Context, t tier.Tier, limit int) ([]DueRef, error)

	// DueStats returns due-but-unclaimed counts per tier level.
	DueStats(ctx context.Context) (map[int]int64, error)

	// GetProduct returns one product. ErrNotFound if unknown.
	GetProduct(ctx context.Context, id uint) (model.Product, error)

	// CreateProduct inserts a new tracked product.
	CreateProduct(ctx context.Context, p *model.Product) error

	// SaveProduct persists updated fields of an existing product row.
	SaveProduct(ctx context.Context, p *model.Product) error

	// ApplyQuote writes the refreshed quote onto the product row and
	// advances last_checked_at/check_count. Writes are last-write-wins by
	// checked_at: a stale checked_at never regresses last_checked_at.
	ApplyQuote(ctx context.Context, id uint, q model.Quote, checkedAt time.Time) error

	// MarkUnavailable flags the product unavailable and advances
	// last_checked_at. Tracking stays active; deactivation is an operator
	// decision.
	MarkUnavailable(ctx context.Context, id uint, checkedAt time.Time) error

	// UpdateClassification persists a recomputed score and tier.
	UpdateClassification(ctx context.Context, id uint, score, tierLevel int) error

	// SetChannel switches the product's acquisition channel.
	SetChannel(ctx context.Context, id uint, ch model.Channel) error

	// IncRateLimitRejections bumps the adaptive-fallback counter and
	// returns the new value.
	IncRateLimitRejections(ctx context.Context, id uint) (int, error)

	// ResetRateLimitRejections clears the counter after a successful API check.
	ResetRateLimitRejections(ctx context.Context, id uint) error

	// AppendPricePoint inserts a history row. Duplicate
	// (product_id, recorded_at) inserts are ignored so at-least-once
	// delivery collapses to one row.
	AppendPricePoint(ctx context.Context, pt model.PricePoint) error

	// TrailingPrices returns available prices recorded since the cutoff,
	// oldest first.
	TrailingPrices(ctx context.Context, productID uint, since time.Time) ([]int64, error)

	// MinPriceSince returns the minimum available price recorded since the
	// cutoff. ok is false when the window holds no samples.
	MinPriceSince(ctx context.Context, productID uint, since time.Time) (price int64, ok bool, err error)

	// ActiveDeal returns the product's active deal. ErrNotFound when none.
	ActiveDeal(ctx context.Context, productID uint) (model.Deal, error)

	// CreateDeal inserts a new deal row.
	CreateDeal(ctx context.Context, d *model.Deal) error

	// SaveDeal persists updated fields of an existing deal.
	SaveDeal(ctx context.Context, d *model.Deal) error
}
