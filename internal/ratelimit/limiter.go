package ratelimit

import "context"

// RateLimiter throttles calls to an external adapter, keyed by scope
// ("draft", "scrape", "send").
type RateLimiter interface {
	Allow(ctx context.Context, scope string) (bool, error)
	Wait(ctx context.Context, scope string) error
}
