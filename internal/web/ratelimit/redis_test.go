package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func newTestRedisLimiter(t *testing.T, limit int, window time.Duration) (*RedisLimiter, *time.Time) {
	t.Helper()
	client, _ := setupTestRedis(t)

	config := DefaultRedisConfig(client)
	config.Limit = limit
	config.Window = window

	limiter, err := NewRedisLimiter(config)
	require.NoError(t, err)

	now := time.UnixMilli(1_700_000_000_000)
	limiter.now = func() time.Time { return now }
	return limiter, &now
}

func TestNewRedisLimiter_InvalidConfig(t *testing.T) {
	tests := []struct {
		name        string
		config      RedisConfig
		expectedErr string
	}{
		{"nil client", RedisConfig{Limit: 100, Window: time.Minute}, "redis client is required"},
		{"zero limit", RedisConfig{Client: &redis.Client{}, Window: time.Minute}, "limit must be greater than 0"},
		{"negative limit", RedisConfig{Client: &redis.Client{}, Limit: -1, Window: time.Minute}, "limit must be greater than 0"},
		{"zero window", RedisConfig{Client: &redis.Client{}, Limit: 100}, "window must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRedisLimiter(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestRedisLimiter_Allow(t *testing.T) {
	limiter, now := newTestRedisLimiter(t, 3, time.Minute)
	ctx := context.Background()
	start := *now

	for i := 0; i < 3; i++ {
		info, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, info.Allowed, "request %d", i+1)
		assert.Equal(t, 3, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
		*now = now.Add(time.Second)
	}

	info, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, start.Add(time.Minute), info.ResetAt)
}

func TestRedisLimiter_WindowSlides(t *testing.T) {
	limiter, now := newTestRedisLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := limiter.Allow(ctx, "client")
		require.NoError(t, err)
	}
	info, err := limiter.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, info.Allowed)

	*now = now.Add(time.Minute + time.Millisecond)

	info, err = limiter.Allow(ctx, "client")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
	assert.Equal(t, 1, info.Remaining)
}

func TestRedisLimiter_KeysAreIndependent(t *testing.T) {
	limiter, _ := newTestRedisLimiter(t, 1, time.Minute)
	ctx := context.Background()

	info, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, info.Allowed)

	info, err = limiter.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestRedisLimiter_Reset(t *testing.T) {
	limiter, _ := newTestRedisLimiter(t, 1, time.Minute)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, limiter.Reset(ctx, "a"))

	info, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, info.Allowed)
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	client, mr := setupTestRedis(t)
	limiter, err := NewRedisLimiter(DefaultRedisConfig(client))
	require.NoError(t, err)

	mr.Close()

	_, err = limiter.Allow(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis rate limit check failed")
}
