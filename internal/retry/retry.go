// Package retry implements a bounded exponential backoff policy for
// network-backed collaborator calls (embedding and LLM extraction).
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds the retry loop. The zero value disables retries
// (one attempt, no delay).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// Default matches the delays used for rate-limited provider calls.
func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, Multiplier: 2}
}

// Do runs op up to MaxAttempts times, sleeping BaseDelay×Multiplier^n
// between attempts. Only errors for which retryable returns true are
// retried; the last error is returned once attempts are exhausted.
func (p Policy) Do(ctx context.Context, op func(context.Context) error, retryable func(error) bool) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	delay := p.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry canceled: %w", ctx.Err())
		case <-timer.C:
		}

		if p.Multiplier > 0 {
			delay = time.Duration(float64(delay) * p.Multiplier)
		}
	}

	return lastErr
}
