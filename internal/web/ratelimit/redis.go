package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the window, then admits the request when the key is
// under its limit. Scores are unix milliseconds. Returns {allowed, count,
// oldest score}.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

	local current = redis.call('ZCARD', key)
	local allowed = 0
	if current < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, ttl)
		current = current + 1
		allowed = 1
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	local first = ARGV[1]
	if oldest[2] then
		first = oldest[2]
	end
	return {allowed, current, first}
`)

// RedisLimiter implements a sliding window limiter whose state lives in
// Redis, so several query servers share one budget per client
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

// RedisConfig holds configuration for the Redis limiter
type RedisConfig struct {
	Client *redis.Client
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Window is the sliding window length
	Window time.Duration
	// Prefix namespaces the sorted-set keys
	Prefix string
}

// DefaultRedisConfig allows 100 requests per minute
func DefaultRedisConfig(client *redis.Client) RedisConfig {
	return RedisConfig{
		Client: client,
		Limit:  100,
		Window: time.Minute,
		Prefix: "metamodel:ratelimit:",
	}
}

// NewRedisLimiter validates config and creates the limiter
func NewRedisLimiter(config RedisConfig) (*RedisLimiter, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if config.Window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}

	return &RedisLimiter{
		client: config.Client,
		limit:  config.Limit,
		window: config.Window,
		prefix: config.Prefix,
		now:    time.Now,
	}, nil
}

// Allow records the request for key when it fits in the window
func (r *RedisLimiter) Allow(ctx context.Context, key string) (*Info, error) {
	now := r.now()
	result, err := slidingWindow.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixMilli(),
		now.Add(-r.window).UnixMilli(),
		r.limit,
		r.window.Milliseconds(),
		uuid.NewString(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}
	if len(result) != 3 {
		return nil, errors.New("unexpected redis script result")
	}

	allowed, ok := result[0].(int64)
	if !ok {
		return nil, errors.New("invalid allowed value from redis")
	}
	count, ok := result[1].(int64)
	if !ok {
		return nil, errors.New("invalid count value from redis")
	}
	oldest, ok := result[2].(string)
	if !ok {
		return nil, errors.New("invalid window start from redis")
	}

	first, err := strconv.ParseFloat(oldest, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid window start from redis: %w", err)
	}

	remaining := r.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return &Info{
		Limit:     r.limit,
		Remaining: remaining,
		ResetAt:   time.UnixMilli(int64(first)).Add(r.window),
		Allowed:   allowed == 1,
	}, nil
}

// Reset drops the recorded requests of key
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Close closes the underlying client
func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
