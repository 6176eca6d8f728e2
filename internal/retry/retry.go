// Package retry provides the bounded exponential back-off policy used by the
// mail transport, and the context-aware sleep shared with the bulk
// dispatcher's fixed inter-send delay.
package retry

import (
	"context"
	"time"
)

// SleepFunc blocks for d or until ctx is done, returning ctx.Err() in the
// latter case. Tests substitute a recorder so no real time passes.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Policy bounds the number of attempts and the delay between them.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the wait after the first failed attempt. Each subsequent
	// wait doubles, capped at MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultPolicy returns 3 attempts with 1s, 2s waits (10s cap).
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	return p
}

// Backoff returns the wait after failed attempt n (1-based):
// min(BaseDelay * 2^(n-1), MaxDelay).
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Attempts reports the effective attempt budget.
func (p Policy) Attempts() int {
	return p.withDefaults().MaxAttempts
}

// Do calls fn until it succeeds, returns an error retryable rejects, the
// attempt budget is spent, or ctx is done. It returns the number of attempts
// made and the last error (nil on success).
//
// A nil retryable treats every error as retryable. A nil sleep uses Sleep.
func (p Policy) Do(
	ctx context.Context,
	sleep SleepFunc,
	fn func(ctx context.Context, attempt int) error,
	retryable func(error) bool,
) (int, error) {
	p = p.withDefaults()
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return attempt - 1, lastErr
			}
			return attempt - 1, err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return attempt, nil
		}
		if retryable != nil && !retryable(lastErr) {
			return attempt, lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}
		if err := sleep(ctx, p.Backoff(attempt)); err != nil {
			return attempt, lastErr
		}
	}
	return p.MaxAttempts, lastErr
}
