package shipper

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds Retry.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy is three tries with exponential backoff from 500ms.
var DefaultRetryPolicy = RetryPolicy{
	MaxTries:        3,
	InitialInterval: 500 * time.Millisecond,
	MaxElapsedTime:  30 * time.Second,
}

// Retry calls fn until it succeeds, fails with a non-retryable error or the
// policy is exhausted. Operations that are not retry-safe run exactly once.
func Retry[T any](ctx context.Context, op Operation, policy RetryPolicy, fn func() (T, error)) (T, error) {
	if !op.RetrySafe() || policy.MaxTries <= 1 {
		return fn()
	}

	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(policy.MaxTries),
	}
	if policy.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(policy.MaxElapsedTime))
	}

	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, opts...)
}
