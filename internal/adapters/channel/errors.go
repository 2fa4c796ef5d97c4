package channel

import "errors"

// Sentinel kinds for acquisition errors. Anything not matching one of these
// is a transient failure and eligible for retry with backoff.
var (
	// ErrRateLimited signals the API budget rejected the call. Never
	// retried in-worker; feeds the adaptive channel fallback.
	ErrRateLimited = errors.New("rate limit rejected")

	// ErrNotFound signals a delisted product. The worker marks it
	// unavailable; deactivating tracking is an operator decision.
	ErrNotFound = errors.New("product not found")

	// ErrBadData signals a quote that failed integrity validation, e.g. a
	// non-positive price. The prior state is retained.
	ErrBadData = errors.New("quote failed validation")
)

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrRateLimited) &&
		!errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrBadData)
}
