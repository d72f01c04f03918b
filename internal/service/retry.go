package service

import (
	"context"
	"time"

	"expense-service/internal/storage"
)

const (
	// maxAttempts bounds how many times a storage mutation is tried.
	maxAttempts = 3
	// baseBackoff is the delay before the second attempt; it doubles for
	// each attempt after that (1s, 2s, ...).
	baseBackoff = time.Second
)

// RetryExecutor runs a single storage mutation with bounded retries and
// exponential backoff. Only transient failures are retried: a uniqueness
// conflict cannot be resolved by retrying and propagates immediately, as does
// any other permanent error. The storage layer rolls back each failed attempt
// before returning, so every retry starts from clean state.
type RetryExecutor struct {
	attempts int
	backoff  time.Duration

	// sleep waits for the backoff delay; overridable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryExecutor returns an executor with the default attempt bound and
// backoff schedule.
func NewRetryExecutor() *RetryExecutor {
	return &RetryExecutor{
		attempts: maxAttempts,
		backoff:  baseBackoff,
		sleep:    sleepContext,
	}
}

// Do executes op until it succeeds, fails permanently, or the attempt bound
// is reached. The backoff before attempt N is backoff * 2^(N-2). The wait
// honors ctx so a cancelled caller does not keep a worker parked.
func (r *RetryExecutor) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !storage.IsTransient(lastErr) {
			return lastErr
		}
		if attempt < r.attempts {
			delay := r.backoff << (attempt - 1)
			if err := r.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
