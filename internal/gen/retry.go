package gen

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// maxAttempts caps retries of transient failures. After the final attempt
// the error is returned classified as-is (a persistent rate limit surfaces
// as a failure, not an endless loop).
const maxAttempts = 3

// sleepFn is swapped out in tests to avoid real backoff delays.
var sleepFn = sleepCtx

// withRetry runs fn up to maxAttempts times, backing off exponentially with
// jitter between attempts. Only ClassTransient failures are retried; quota
// and credential errors return immediately.
func withRetry[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = Classify(err)
		if ClassOf(lastErr) != ClassTransient {
			return zero, lastErr
		}

		if attempt < maxAttempts-1 {
			backoff := time.Duration(1<<attempt)*time.Second +
				time.Duration(rand.Int63n(int64(500*time.Millisecond)))
			log.Warn().
				Str("operation", op).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Err(err).
				Msg("Transient generation failure, retrying")
			if err := sleepFn(ctx, backoff); err != nil {
				return zero, err
			}
		}
	}

	return zero, lastErr
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
