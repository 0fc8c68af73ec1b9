package services

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"bookrental/internal/repositories"
)

const (
	defaultMaxAttempts  = 5
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

// retryPolicy reruns a transaction that lost a compare-and-swap write.
type retryPolicy struct {
	maxAttempts  int
	baseDelay    time.Duration
	jitterFactor float64
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}
}

// run executes fn with exponential backoff, retrying only on
// repositories.ErrConflict. Every other error fails fast.
//
// Schedule (default): 0 ms, 10 ms, 20 ms, 40 ms, 80 ms plus up to 30% jitter.
func (p retryPolicy) run(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.maxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := p.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * p.jitterFactor //nolint:gosec // jitter only
			select {
			case <-time.After(delay + time.Duration(jitter)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil || !errors.Is(lastErr, repositories.ErrConflict) {
			return lastErr
		}
	}
	return lastErr
}
