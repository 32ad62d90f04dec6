// Package ratelimit throttles query API clients, either with in-memory
// token buckets or with a sliding window shared through Redis.
package ratelimit

import (
	"context"
	"time"
)

// RateLimiter defines the interface for rate limiting implementations
type RateLimiter interface {
	// Allow checks if a request should be allowed for the given key
	Allow(ctx context.Context, key string) (*Info, error)
}

// Info contains information about the current rate limit state
type Info struct {
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Remaining is the number of requests remaining in the current window
	Remaining int
	// ResetAt is when the bucket is full again
	ResetAt time.Time
	// Allowed indicates whether the request should be allowed
	Allowed bool
}
