package config

import "errors"

// Sentinel kinds for configuration errors.
var (
	ErrEmptyAddr       = errors.New("addr must not be empty")
	ErrEmptyDSN        = errors.New("database_dsn must not be empty")
	ErrInvalidRate     = errors.New("api_rate_per_sec must be > 0")
	ErrInvalidCycle    = errors.New("cycle_interval_sec must be > 0")
	ErrInvalidDiscount = errors.New("min_discount must be in (0, 1)")
	ErrInvalidAttempts = errors.New("max_attempts must be >= 1")
	ErrInvalidWeights  = errors.New("scoring weights must sum to a positive value")
	ErrInvalidTier     = errors.New("disabled tiers must be in 1..4")
)
