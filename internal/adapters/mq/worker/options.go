package worker

import (
	"time"

	"dealwatch/pkg/logger"
)

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
			w.logger = logger.Get().Named(name)
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithMaxAttempts bounds how many times one check is tried on transient
// failures.
func WithMaxAttempts(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithBackoffBase sets the first retry delay; later attempts double it.
func WithBackoffBase(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.backoffBase = d
		}
	}
}

// WithCheckTimeout bounds one channel fetch.
func WithCheckTimeout(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.checkTimeout = d
		}
	}
}

// WithFallbackThreshold sets how many rate-limit rejections degrade a
// product to the scrape channel.
func WithFallbackThreshold(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.fallbackThreshold = n
		}
	}
}

// WithNow overrides the clock; tests pin it.
func WithNow(now func() time.Time) Option {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}
