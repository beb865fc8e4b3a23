// Package retry provides a bounded exponential-backoff wrapper for one
// fallible operation.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/moofone/codex-go/internal/logger"
)

// Policy governs one retried operation
type Policy struct {
	MaxRetries    int           // retries after the first attempt
	InitialDelay  time.Duration // delay before the first retry
	BackoffFactor float64       // multiplier applied per subsequent retry
	MaxDelay      time.Duration // cap on the inter-attempt delay
}

// DefaultPolicy returns the policy used for transport construction:
// 3 retries starting at 200ms, doubling, capped at 2s.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    3,
		InitialDelay:  200 * time.Millisecond,
		BackoffFactor: 2,
		MaxDelay:      2 * time.Second,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 200 * time.Millisecond
	}
	if p.BackoffFactor < 1 {
		p.BackoffFactor = 1
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = p.InitialDelay
	}
	return p
}

// Do invokes fn up to MaxRetries+1 times, sleeping between attempts with
// exponential backoff (no jitter). The last error is returned wrapped with
// the operation name and attempt count. Context cancellation aborts the wait.
func Do(ctx context.Context, p Policy, name string, fn func(ctx context.Context) error) error {
	p = p.normalized()

	var lastErr error
	delay := p.InitialDelay

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Info("retrying %s (attempt %d/%d) after %v: %v", name, attempt+1, p.MaxRetries+1, delay, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%s aborted during retry wait: %w", name, ctx.Err())
			}
			delay = time.Duration(float64(delay) * p.BackoffFactor)
			if delay > p.MaxDelay {
				delay = p.MaxDelay
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, p.MaxRetries+1, lastErr)
}
