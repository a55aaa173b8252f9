package httpclient

import (
	"context"
	"time"
)

// IsRetryable reports whether a failure of type t may succeed when sent again.
// Only failures without a usable answer qualify: no response, a timeout or a 5xx.
func IsRetryable(t ErrorType) bool {
	switch t {
	case NetworkError, TimeoutError, ServerError:
		return true
	default:
		return false
	}
}

// backoffDelay returns base * 2^attempt, capped at maxDelay when maxDelay > 0.
func backoffDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for range attempt {
		if maxDelay > 0 && delay >= maxDelay {
			break
		}
		next := delay * 2
		if next < delay {
			// overflow: keep the largest delay reached
			if maxDelay > 0 {
				return maxDelay
			}
			return delay
		}
		delay = next
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
