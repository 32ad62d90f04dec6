package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// TokenBucket implements an in-memory token bucket rate limiter. Each key
// gets Capacity tokens that refill continuously over Window.
type TokenBucket struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	window   time.Duration
	now      func() time.Time

	cleanup   *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// TokenBucketConfig holds configuration for the token bucket rate limiter
type TokenBucketConfig struct {
	// Capacity is the maximum number of tokens in the bucket
	Capacity int
	// Window is how long an empty bucket takes to refill
	Window time.Duration
	// CleanupInterval is how often idle buckets are dropped; zero disables
	CleanupInterval time.Duration
}

// DefaultTokenBucketConfig allows 100 requests per minute
func DefaultTokenBucketConfig() TokenBucketConfig {
	return TokenBucketConfig{
		Capacity:        100,
		Window:          time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewTokenBucket creates a token bucket limiter
func NewTokenBucket(config TokenBucketConfig) *TokenBucket {
	if config.Capacity < 1 {
		config.Capacity = 1
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	tb := &TokenBucket{
		buckets:  make(map[string]*bucket),
		capacity: config.Capacity,
		window:   config.Window,
		now:      time.Now,
		done:     make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		tb.cleanup = time.NewTicker(config.CleanupInterval)
		go tb.cleanupLoop()
	}
	return tb
}

// Allow takes one token from key's bucket
func (tb *TokenBucket) Allow(_ context.Context, key string) (*Info, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(tb.capacity), lastSeen: now}
		tb.buckets[key] = b
	}

	capacity := float64(tb.capacity)
	if elapsed := now.Sub(b.lastSeen); elapsed > 0 {
		refill := elapsed.Seconds() * capacity / tb.window.Seconds()
		b.tokens = math.Min(capacity, b.tokens+refill)
	}
	b.lastSeen = now

	allowed := b.tokens >= 1
	if allowed {
		b.tokens--
	}

	missing := (capacity - b.tokens) / capacity
	return &Info{
		Limit:     tb.capacity,
		Remaining: int(b.tokens),
		ResetAt:   now.Add(time.Duration(missing * float64(tb.window))),
		Allowed:   allowed,
	}, nil
}

func (tb *TokenBucket) cleanupLoop() {
	for {
		select {
		case <-tb.cleanup.C:
			tb.dropIdle()
		case <-tb.done:
			return
		}
	}
}

// dropIdle removes buckets that have been full for at least a window
func (tb *TokenBucket) dropIdle() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	for key, b := range tb.buckets {
		if now.Sub(b.lastSeen) > 2*tb.window {
			delete(tb.buckets, key)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (tb *TokenBucket) Close() error {
	tb.closeOnce.Do(func() {
		close(tb.done)
		if tb.cleanup != nil {
			tb.cleanup.Stop()
		}
	})
	return nil
}
