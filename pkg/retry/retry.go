// ABOUTME: Explicit retry policy with exponential backoff and jitter
// ABOUTME: Wraps network calls so retry behavior lives in one object, not ad hoc loops

package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy bounds how a network call is retried: attempt count, delay
// growth, and which errors are worth another try. The max-attempts and
// max-delay limits give every call site a bounded wall-clock budget.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt; it doubles on
	// each further attempt.
	BaseDelay time.Duration

	// MaxDelay caps the per-attempt wait.
	MaxDelay time.Duration

	// Jitter is the fraction of the delay randomized away (0 to 1) so
	// retries from concurrent processes do not align.
	Jitter float64

	// RetryIf reports whether an error is transient. A nil predicate
	// retries every error.
	RetryIf func(error) bool
}

// Default matches the backoff envelope used against the campaign API:
// eight attempts, exponential from one second, capped at a minute.
func Default() Policy {
	return Policy{
		MaxAttempts: 8,
		BaseDelay:   time.Second,
		MaxDelay:    time.Minute,
		Jitter:      0.2,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, exhausts
// MaxAttempts, or the context is cancelled. The last error is returned
// on exhaustion.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.delay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if p.RetryIf != nil && !p.RetryIf(lastErr) {
			return lastErr
		}
	}

	return lastErr
}

// delay computes the wait before the given attempt (1-based for waits)
func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	if d <= 0 {
		d = time.Second
	}

	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}

	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d = time.Duration(float64(d) - spread*rand.Float64())
	}

	return d
}
