package config

import (
	"context"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if DEALWATCH_CONFIG is set
//  3. env (prefix DEALWATCH_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv("DEALWATCH_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: DEALWATCH_ADDR, DEALWATCH_MIN_DISCOUNT, ...
	// Keys map to the flat koanf tags on the struct; underscores preserved.
	envProvider := env.Provider("DEALWATCH_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "dealwatch_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return ErrEmptyAddr
	case c.DatabaseDSN == "":
		return ErrEmptyDSN
	case c.APIRatePerSec <= 0:
		return ErrInvalidRate
	case c.CycleIntervalSec <= 0:
		return ErrInvalidCycle
	case c.MinDiscount <= 0 || c.MinDiscount >= 1:
		return ErrInvalidDiscount
	case c.MaxAttempts < 1:
		return ErrInvalidAttempts
	}
	if c.DealWeight+c.VolatilityWeight+c.PopularityWeight+c.RecencyWeight <= 0 {
		return ErrInvalidWeights
	}
	for _, t := range c.DisabledTiers {
		if t < 1 || t > 4 {
			return ErrInvalidTier
		}
	}
	return nil
}

// TierDisabled reports whether tier was disabled by the operator.
func (c *Config) TierDisabled(tier int) bool {
	for _, t := range c.DisabledTiers {
		if t == tier {
			return true
		}
	}
	return false
}
