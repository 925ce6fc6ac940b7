// Package backoff provides delay strategies for retry.
package backoff

import (
	"time"
)

// Strategy returns how long to wait after the given attempt. Attempts start
// at 1.
type Strategy func(attempts uint) time.Duration

// Constant waits the same interval after every attempt, which is how
// confirmation polling paces itself.
func Constant(interval time.Duration) Strategy {
	return func(uint) time.Duration {
		return interval
	}
}
