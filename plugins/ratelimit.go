// Package plugins contains ready-made client plugins.
package plugins

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/moofone/codex-go/protocol"
)

// RateLimit paces submissions per operation kind so a chatty caller cannot
// flood the agent runtime. BeforeSubmit blocks until the limiter grants a
// token or the context is cancelled.
type RateLimit struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewRateLimit creates a rate limit plugin.
// opsPerSecond: submissions per second allowed per operation kind
// burst: maximum burst size
func NewRateLimit(opsPerSecond float64, burst int) *RateLimit {
	return &RateLimit{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(opsPerSecond),
		burst:    burst,
	}
}

// DefaultRateLimit returns a limiter with sensible defaults:
// 5 submissions/second with burst of 10
func DefaultRateLimit() *RateLimit {
	return NewRateLimit(5, 10)
}

// Name implements the plugin interface
func (p *RateLimit) Name() string {
	return "ratelimit"
}

// BeforeSubmit waits for the limiter of the submission's operation kind
func (p *RateLimit) BeforeSubmit(ctx context.Context, sub *protocol.Submission) error {
	return p.limiter(protocol.OpType(sub.Op)).Wait(ctx)
}

// limiter returns the limiter for an operation kind
func (p *RateLimit) limiter(op string) *rate.Limiter {
	p.mu.RLock()
	limiter, exists := p.limiters[op]
	p.mu.RUnlock()

	if exists {
		return limiter
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists = p.limiters[op]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(p.rate, p.burst)
	p.limiters[op] = limiter
	return limiter
}
