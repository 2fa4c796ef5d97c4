// Package model contains domain records passed between layers and persisted
// by the product store.
package model

import "time"

// Channel identifies how a product's data is acquired.
type Channel string

const (
	// ChannelAPI is the rate-limited marketplace API.
	ChannelAPI Channel = "api"
	// ChannelScrape is the scraping fallback.
	ChannelScrape Channel = "scrape"
)

// Product is the canonical record for one tracked item.
type Product struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ExternalID string `gorm:"size:32;uniqueIndex;not null" json:"external_id"`
	Title      string `gorm:"size:512" json:"title"`
	URL        string `gorm:"size:1024" json:"url"`

	// Prices are integer minor units (cents).
	CurrentPrice int64  `json:"current_price"`
	ListPrice    int64  `json:"list_price"`
	Currency     string `gorm:"size:3;not null;default:USD" json:"currency"`

	IsAvailable bool    `json:"is_available"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`

	// LastCheckedAt is monotonic non-decreasing; NULL until the first check.
	LastCheckedAt *time.Time `gorm:"index" json:"last_checked_at"`
	CheckCount    int64      `json:"check_count"`

	PriorityScore      int     `json:"priority_score"`
	Tier               int     `gorm:"index;not null;default:4" json:"tier"`
	AcquisitionChannel Channel `gorm:"size:8;not null;default:api" json:"acquisition_channel"`

	// RateLimitRejections drives the adaptive channel fallback; reset on a
	// successful API check.
	RateLimitRejections int `json:"rate_limit_rejections"`

	IsActive bool `gorm:"index;not null;default:true" json:"is_active"`
}

func (Product) TableName() string { return "products" }

// PricePoint is one append-only price history row, inserted only when price
// or availability changed. Unique on (product_id, recorded_at) so duplicate
// delivery of the same check result collapses to one row.
type PricePoint struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	ProductID   uint      `gorm:"not null;uniqueIndex:idx_price_point" json:"product_id"`
	Price       int64     `gorm:"not null" json:"price"`
	IsAvailable bool      `json:"is_available"`
	RecordedAt  time.Time `gorm:"not null;uniqueIndex:idx_price_point" json:"recorded_at"`
}

func (PricePoint) TableName() string { return "price_history" }

// Deal is a persisted price drop. Rows are deactivated, never deleted.
type Deal struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProductID          uint    `gorm:"not null;index" json:"product_id"`
	OriginalPrice      int64   `gorm:"not null" json:"original_price"`
	DealPrice          int64   `gorm:"not null" json:"deal_price"`
	DiscountPercentage float64 `gorm:"not null" json:"discount_percentage"`
	Currency           string  `gorm:"size:3;not null;default:USD" json:"currency"`

	IsActive    bool       `gorm:"index;not null;default:true" json:"is_active"`
	IsPublished bool       `json:"is_published"`
	NotifiedAt  *time.Time `json:"notified_at"`

	// Superlative badges: current price is the minimum observed in the
	// trailing window.
	IsCheapest14Days  bool `json:"is_cheapest_14days"`
	IsCheapest1Month  bool `json:"is_cheapest_1month"`
	IsCheapest3Months bool `json:"is_cheapest_3months"`
	IsCheapest6Months bool `json:"is_cheapest_6months"`
}

func (Deal) TableName() string { return "deals" }

// WorkItem is the ephemeral unit of scheduled work flowing through the
// priority-lane queue. Delivery is at-least-once; the worker's apply is
// idempotent.
type WorkItem struct {
	ProductID  uint
	ExternalID string
	Tier       int
	Channel    Channel
	Lane       int
	EnqueuedAt time.Time
	Attempt    int
}

// Quote is the acquisition-channel result for one product.
type Quote struct {
	Price       int64
	ListPrice   int64
	Currency    string
	Available   bool
	Rating      float64
	ReviewCount int
}
