package retry

import (
	"context"
	"errors"
	"time"

	"github.com/code-payments/solana-starter/pkg/retry/backoff"
)

// Strategy decides whether another attempt follows a failed one. A strategy
// may block, which is how delays are applied.
type Strategy func(attempts uint, err error) bool

// Limit caps the total number of attempts, including the first.
func Limit(maxAttempts uint) Strategy {
	return func(attempts uint, err error) bool {
		return attempts < maxAttempts
	}
}

// RetriableErrors only retries errors that match one of retriable, wrapped or
// not.
func RetriableErrors(retriable ...error) Strategy {
	return func(attempts uint, err error) bool {
		for _, e := range retriable {
			if errors.Is(err, e) {
				return true
			}
		}

		return false
	}
}

// BackoffWithContext returns a strategy that delays the next retry. The
// delay is cut short, and no further retries are performed, once ctx is done.
func BackoffWithContext(ctx context.Context, strategy backoff.Strategy, maxBackoff time.Duration) Strategy {
	return func(attempts uint, err error) bool {
		if ctx.Err() != nil {
			return false
		}

		timer := time.NewTimer(capDelay(strategy(attempts), maxBackoff))
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		}
	}
}

func capDelay(delay, maxBackoff time.Duration) time.Duration {
	return min(delay, maxBackoff)
}
