// Package retry wraps external call sites with bounded exponential
// backoff. Failures must be classified at the point of origin: wrap
// non-retryable errors with Permanent so they surface immediately.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Do runs fn with exponential backoff until it succeeds, returns a
// permanent error, the context is cancelled, or maxRetries additional
// attempts are exhausted.
func Do[T any](ctx context.Context, maxRetries int, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	return backoff.Retry(ctx, fn,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(maxRetries)+1),
	)
}

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
