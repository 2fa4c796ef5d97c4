// Package config defines service configuration structures and loading hooks.
//
// Conventions follow the rest of the codebase: defaults built in New, layered
// file/env loading in Load, sentinel errors in errors.go.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the ops HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DatabaseDSN is the sqlite DSN for the product store.
	DatabaseDSN string `koanf:"database_dsn"`

	// RedisAddr is the notification outbox address. Empty selects the
	// in-memory dispatcher (tests, local runs).
	RedisAddr string `koanf:"redis_addr"`

	// NotifyStream is the redis stream deal ids are appended to.
	NotifyStream string `koanf:"notify_stream"`

	// WorkerCount sets the number of check workers.
	WorkerCount int `koanf:"worker_count"`

	// LaneDepth bounds each priority lane of the work queue.
	LaneDepth int `koanf:"lane_depth"`

	// CycleIntervalSec is the scheduler cadence in seconds.
	CycleIntervalSec int `koanf:"cycle_interval_sec"`

	// APIRatePerSec and APIBurst configure the shared marketplace token bucket.
	APIRatePerSec float64 `koanf:"api_rate_per_sec"`
	APIBurst      int     `koanf:"api_burst"`

	// APIBaseURL and APIKey configure the marketplace API channel.
	APIBaseURL string `koanf:"api_base_url"`
	APIKey     string `koanf:"api_key"`

	// ScrapeBaseURL configures the scraping fallback channel.
	ScrapeBaseURL string `koanf:"scrape_base_url"`

	// CheckTimeoutMS bounds a single acquisition call.
	CheckTimeoutMS int `koanf:"check_timeout_ms"`

	// MaxAttempts bounds transient-failure retries per check.
	MaxAttempts int `koanf:"max_attempts"`

	// BackoffBaseMS is the first retry delay; it doubles per attempt.
	BackoffBaseMS int `koanf:"backoff_base_ms"`

	// RateWaitTimeoutMS bounds how long a worker blocks for an API token.
	RateWaitTimeoutMS int `koanf:"rate_wait_timeout_ms"`

	// FallbackThreshold is the rate-limit rejection count that degrades a
	// product to the scrape channel.
	FallbackThreshold int `koanf:"fallback_threshold"`

	// MinDiscount is the deal threshold as a fraction of list price.
	MinDiscount float64 `koanf:"min_discount"`

	// Priority scoring weights; normalized at load time.
	DealWeight       float64 `koanf:"deal_weight"`
	VolatilityWeight float64 `koanf:"volatility_weight"`
	PopularityWeight float64 `koanf:"popularity_weight"`
	RecencyWeight    float64 `koanf:"recency_weight"`

	// Paused stops scheduling cycles when true; workers drain what is queued.
	Paused bool `koanf:"paused"`

	// DisabledTiers lists tiers (1-4) skipped by the scheduler.
	DisabledTiers []int `koanf:"disabled_tiers"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		DatabaseDSN:       "dealwatch.db",
		RedisAddr:         "",
		NotifyStream:      "dealwatch:deal_events",
		WorkerCount:       runtime.NumCPU() * 4,
		LaneDepth:         20_000,
		CycleIntervalSec:  60,
		APIRatePerSec:     10,
		APIBurst:          10,
		APIBaseURL:        "https://api.marketplace.example",
		APIKey:            "",
		ScrapeBaseURL:     "https://www.marketplace.example",
		CheckTimeoutMS:    15_000,
		MaxAttempts:       3,
		BackoffBaseMS:     500,
		RateWaitTimeoutMS: 2_000,
		FallbackThreshold: 5,
		MinDiscount:       0.15,
		DealWeight:        0.50,
		VolatilityWeight:  0.30,
		PopularityWeight:  0.15,
		RecencyWeight:     0.05,
	}
}
