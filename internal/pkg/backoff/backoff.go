package backoff

import (
	"context"
	"time"

	"github.com/thrivewell/wellness-backend/internal/pkg/httpx"
)

// Policy bounds a retry loop: MaxAttempts total tries, Base delay doubled
// after each failed attempt, capped at Max.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
}

func Default() Policy {
	return Policy{MaxAttempts: 4, Base: 200 * time.Millisecond, Max: 2 * time.Second}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Base <= 0 {
		p.Base = 200 * time.Millisecond
	}
	if p.Max <= 0 {
		p.Max = 2 * time.Second
	}
	return p
}

// Do runs fn until it succeeds, the policy is exhausted, or retryable reports
// the error as permanent. The last error is returned as-is so callers can
// inspect it with errors.Is/As.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(ctx context.Context) error) error {
	p = p.normalized()
	delay := p.Base

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}
		sleepFor := delay
		if sleepFor > p.Max {
			sleepFor = p.Max
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(httpx.JitterSleep(sleepFor)):
		}
		delay *= 2
	}
	return lastErr
}
