// Package scoring computes the 0-100 priority score deciding how often a
// product is re-checked.
package scoring

import (
	"math"
	"time"
)

// Default weights; overridable from configuration.
const (
	defaultDealWeight       = 0.50
	defaultVolatilityWeight = 0.30
	defaultPopularityWeight = 0.15
	defaultRecencyWeight    = 0.05

	maxScore = 100

	// Volatility mapping: coefficient of variation >= 20% scores 1,
	// <= 2% scores 0, linear in between.
	volatilityCeiling = 0.20
	volatilityFloor   = 0.02

	// Review counts are log-scaled; 10^4 reviews saturate the term.
	reviewLogSaturation = 4.0
	maxRating           = 5.0

	// A product unchecked for this long gets the full recency term.
	recencyHorizon = 48 * time.Hour

	minVolatilitySamples = 2
)

// Snapshot is the immutable input to one scoring pass. Identical snapshots
// always produce identical scores.
type Snapshot struct {
	HasActiveDeal bool

	// TrailingPrices holds observed prices (minor units) from the trailing
	// 30-day history window, oldest first.
	TrailingPrices []int64

	Rating      float64
	ReviewCount int

	// LastCheckedAt is nil for never-checked products.
	LastCheckedAt *time.Time

	// Now anchors the recency term so scoring stays a pure function.
	Now time.Time
}

// Weights holds the relative importance of each sub-term. They are
// normalized before use, so any positive scale works.
type Weights struct {
	Deal       float64
	Volatility float64
	Popularity float64
	Recency    float64
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights overrides the default scoring weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		if w.Deal+w.Volatility+w.Popularity+w.Recency > 0 {
			s.weights = w
		}
	}
}

// Scorer computes priority scores. It holds no mutable state.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer with configuration options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		weights: Weights{
			Deal:       defaultDealWeight,
			Volatility: defaultVolatilityWeight,
			Popularity: defaultPopularityWeight,
			Recency:    defaultRecencyWeight,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score returns the priority score in [0, 100] for the snapshot.
func (s *Scorer) Score(in Snapshot) int {
	total := s.weights.Deal + s.weights.Volatility + s.weights.Popularity + s.weights.Recency

	deal := 0.0
	if in.HasActiveDeal {
		deal = 1.0
	}

	weighted := s.weights.Deal*deal +
		s.weights.Volatility*volatility(in.TrailingPrices) +
		s.weights.Popularity*popularity(in.Rating, in.ReviewCount) +
		s.weights.Recency*recency(in.LastCheckedAt, in.Now)

	score := int(math.Round(weighted / total * maxScore))
	if score < 0 {
		return 0
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// volatility maps the coefficient of variation of the trailing prices to
// [0, 1]. Fewer than two samples yields 0.
func volatility(prices []int64) float64 {
	if len(prices) < minVolatilitySamples {
		return 0
	}

	var sum float64
	for _, p := range prices {
		sum += float64(p)
	}
	mean := sum / float64(len(prices))
	if mean <= 0 {
		return 0
	}

	var variance float64
	for _, p := range prices {
		d := float64(p) - mean
		variance += d * d
	}
	variance /= float64(len(prices))

	cv := math.Sqrt(variance) / mean
	switch {
	case cv >= volatilityCeiling:
		return 1
	case cv <= volatilityFloor:
		return 0
	default:
		return (cv - volatilityFloor) / (volatilityCeiling - volatilityFloor)
	}
}

// popularity blends log-scaled review count with the rating. Missing signals
// contribute 0 rather than erroring.
func popularity(rating float64, reviewCount int) float64 {
	reviews := 0.0
	if reviewCount > 0 {
		reviews = math.Min(math.Log10(float64(reviewCount)+1)/reviewLogSaturation, 1)
	}

	rated := 0.0
	if rating > 0 {
		rated = math.Min(rating/maxRating, 1)
	}

	return 0.6*reviews + 0.4*rated
}

// recency grows with time since the last check so stale products cannot
// starve. Never-checked products get the full term.
func recency(lastCheckedAt *time.Time, now time.Time) float64 {
	if lastCheckedAt == nil {
		return 1
	}
	age := now.Sub(*lastCheckedAt)
	if age <= 0 {
		return 0
	}
	if age >= recencyHorizon {
		return 1
	}
	return float64(age) / float64(recencyHorizon)
}
