package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"dealwatch/internal/domain/model"
)

// Default API client configuration constants.
const (
	defaultHTTPTimeout = 15 * time.Second
	defaultWaitTimeout = 2 * time.Second
)

// APIOption applies a configuration option to the APIChannel.
type APIOption func(*APIChannel)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) APIOption {
	return func(a *APIChannel) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// WithWaitTimeout bounds how long Fetch blocks for a token before giving up
// with a rate-limit rejection.
func WithWaitTimeout(d time.Duration) APIOption {
	return func(a *APIChannel) {
		if d > 0 {
			a.waitTimeout = d
		}
	}
}

// APIChannel fetches product data from the marketplace API. A single token
// bucket is shared by every worker using this channel.
type APIChannel struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	limiter     *rate.Limiter
	waitTimeout time.Duration
}

// NewAPIChannel creates the API channel with a shared token bucket.
func NewAPIChannel(baseURL, apiKey string, limiter *rate.Limiter, opts ...APIOption) *APIChannel {
	a := &APIChannel{
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		baseURL:     baseURL,
		apiKey:      apiKey,
		limiter:     limiter,
		waitTimeout: defaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *APIChannel) Name() model.Channel { return model.ChannelAPI }

// apiProduct mirrors the marketplace item payload. Prices arrive as decimal
// major units and are converted to cents.
type apiProduct struct {
	Price       float64 `json:"price"`
	ListPrice   float64 `json:"list_price"`
	Currency    string  `json:"currency"`
	Available   bool    `json:"availability"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

// Fetch performs one token-gated GET. A token that does not arrive within
// the wait timeout is a rate-limit rejection, not an error.
func (a *APIChannel) Fetch(ctx context.Context, externalID string) (model.Quote, error) {
	waitCtx, cancel := context.WithTimeout(ctx, a.waitTimeout)
	defer cancel()
	if err := a.limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return model.Quote{}, fmt.Errorf("token wait: %w", ctx.Err())
		}
		return model.Quote{}, ErrRateLimited
	}

	url := a.baseURL + "/v1/items/" + externalID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Quote{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return model.Quote{}, fmt.Errorf("api request %s: %w", externalID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return model.Quote{}, ErrRateLimited
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return model.Quote{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return model.Quote{}, fmt.Errorf("api status %d for %s", resp.StatusCode, externalID)
	}

	var payload apiProduct
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.Quote{}, fmt.Errorf("decode item %s: %w", externalID, err)
	}

	q := model.Quote{
		Price:       toCents(payload.Price),
		ListPrice:   toCents(payload.ListPrice),
		Currency:    payload.Currency,
		Available:   payload.Available,
		Rating:      payload.Rating,
		ReviewCount: payload.ReviewCount,
	}
	if err := validate(q); err != nil {
		return model.Quote{}, err
	}
	return q, nil
}

// validate rejects quotes that would corrupt the store.
func validate(q model.Quote) error {
	if q.Available && q.Price <= 0 {
		return fmt.Errorf("%w: price %d", ErrBadData, q.Price)
	}
	if q.ListPrice < 0 || q.Rating < 0 || q.Rating > 5 || q.ReviewCount < 0 {
		return ErrBadData
	}
	return nil
}

func toCents(major float64) int64 {
	return int64(math.Round(major * 100))
}
