// Package retry runs an operation a bounded number of times with a fixed
// delay between attempts.
package retry

import (
	"context"
	"errors"
	"time"

	"adminconsole/pkg/platform/clock"
)

// ErrNoAttempts is returned when a policy allows zero attempts.
var ErrNoAttempts = errors.New("retry: policy allows no attempts")

// Policy describes how many times to run an operation and how long to wait
// between runs.
type Policy struct {
	Attempts int
	Delay    time.Duration
	Clock    clock.Clock

	// Retryable decides whether a failed attempt may be retried. Nil retries
	// every error.
	Retryable func(error) bool
}

// Once is the single-retry policy: one attempt, then exactly one more after delay.
func Once(delay time.Duration) Policy {
	return Policy{Attempts: 2, Delay: delay}
}

// WithClock returns a copy of p driven by c.
func (p Policy) WithClock(c clock.Clock) Policy {
	p.Clock = c
	return p
}

// Do runs fn until it succeeds, the policy is exhausted, or ctx is done.
// The last attempt's result is returned. Attempts never overlap.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if p.Attempts <= 0 {
		return zero, ErrNoAttempts
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	var (
		result T
		err    error
	)
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return result, err
			}
			return zero, ctxErr
		}

		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt == p.Attempts || (p.Retryable != nil && !p.Retryable(err)) {
			return result, err
		}

		select {
		case <-ctx.Done():
			return result, err
		case <-clk.After(p.Delay):
		}
	}
	return result, err
}
