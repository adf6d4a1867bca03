package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how generation calls behave on rate limiting:
// retry with exponentially increasing delay up to MaxAttempts total
// tries, then surface the error. All other failure kinds are terminal
// on the first occurrence.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, Multiplier: 2.0}
}

func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.Multiplier = p.Multiplier
	bo.RandomizationFactor = 0

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if kind, ok := KindOf(err); ok && kind == KindRateLimited {
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx))
}
