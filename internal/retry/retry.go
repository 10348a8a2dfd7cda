package retry

import (
	"context"
	"time"

	"recycle-pickup-api-server/internal/lifecycle"

	"github.com/cenkalti/backoff/v4"
)

// MaxAttempts bounds how often a retryable lifecycle error is retried,
// counting the first call.
const MaxAttempts = 4

// Policy builds the backoff used by Do. Tests swap it for a zero-delay one.
var Policy = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 3 * time.Second
	return b
}

// Do calls fn until it succeeds, returns an error that is not retryable, or
// MaxAttempts is reached. Conflict and PersistenceTimeout are retryable.
func Do[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	b := backoff.WithContext(backoff.WithMaxRetries(Policy(), MaxAttempts-1), ctx)
	return backoff.RetryWithData(func() (T, error) {
		v, err := fn()
		if err != nil && !lifecycle.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, b)
}
