// Package channel implements the two product acquisition channels: the
// rate-limited marketplace API and the scraping fallback. Both return the
// same Quote contract.
package channel

import (
	"context"

	"dealwatch/internal/domain/model"
)

// Channel fetches fresh product data by external id.
type Channel interface {
	// Fetch returns a quote or a taxonomy error: ErrRateLimited,
	// ErrNotFound, ErrBadData, or a transient failure.
	Fetch(ctx context.Context, externalID string) (model.Quote, error)

	// Name identifies the channel.
	Name() model.Channel
}

// Selector resolves the channel configured for a product.
type Selector struct {
	api    Channel
	scrape Channel
}

// NewSelector bundles the two channels behind per-product selection.
func NewSelector(api, scrape Channel) *Selector {
	return &Selector{api: api, scrape: scrape}
}

// For returns the channel matching ch, defaulting to scrape for anything
// unknown so a corrupt row degrades gracefully instead of failing.
func (s *Selector) For(ch model.Channel) Channel {
	if ch == model.ChannelAPI {
		return s.api
	}
	return s.scrape
}
