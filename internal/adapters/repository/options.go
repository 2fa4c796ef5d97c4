package repository

import "time"

// Option applies a configuration option to the GormStore.
type Option func(*GormStore)

// WithNow overrides the clock used for due cutoffs; tests pin it.
func WithNow(now func() time.Time) Option {
	return func(s *GormStore) {
		if now != nil {
			s.now = now
		}
	}
}
