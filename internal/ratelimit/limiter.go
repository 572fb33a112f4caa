// Package ratelimit paces requests to catalog APIs.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with a name for logging/debugging.
// A nil *Limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// Every creates a limiter that lets one request through per interval, with no burst.
// Catalog adapters use it as the fixed pause between page requests.
func Every(name string, interval time.Duration) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		name:    name,
	}
}

// Wait blocks until the rate limiter allows a request to proceed.
// Returns an error if the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", l.name, err)
	}
	return nil
}
