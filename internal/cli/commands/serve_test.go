package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/conduit-lang/metamodel/internal/cli/config"
	"github.com/conduit-lang/metamodel/internal/web/events"
	"github.com/conduit-lang/metamodel/internal/web/ratelimit"
	"github.com/conduit-lang/metamodel/runtime/metadata"
)

func TestServe(t *testing.T) {
	t.Cleanup(metadata.Reset)

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, cfg, zaptest.NewLogger(t), "127.0.0.1:0", &out, true)
	}()

	require.Eventually(t, func() bool {
		return metadata.GetMetadata() != nil
	}, 5*time.Second, 10*time.Millisecond)

	// the build is over, so the event stream replays it up to publication
	addr := strings.TrimSpace(out.String()[strings.Index(out.String(), "http://"):])
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(addr, "http")+"/events", nil)
	require.NoError(t, err)
	var last events.Event
	for last.Type != events.TypePublished {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		require.NoError(t, conn.ReadJSON(&last))
	}
	assert.Equal(t, 5, last.Types)
	conn.Close()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}

	assert.Contains(t, out.String(), "Serving metamodel on http://127.0.0.1:")
	assert.Nil(t, metadata.GetMetadata(), "shutdown should unregister the snapshot")
}

func TestServeListenFailure(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	var out bytes.Buffer
	err = serve(context.Background(), cfg, zaptest.NewLogger(t), "256.0.0.1:0", &out, true)
	assert.Error(t, err)
}

func TestNewRateLimiter(t *testing.T) {
	limiter, err := newRateLimiter(config.ServerConfig{})
	require.NoError(t, err)
	assert.Nil(t, limiter)

	limiter, err = newRateLimiter(config.ServerConfig{RateLimit: 10})
	require.NoError(t, err)
	assert.IsType(t, &ratelimit.TokenBucket{}, limiter)
	require.NoError(t, limiter.Close())

	mr := miniredis.RunT(t)
	limiter, err = newRateLimiter(config.ServerConfig{RateLimit: 1, RateLimitRedis: mr.Addr()})
	require.NoError(t, err)
	require.IsType(t, &ratelimit.RedisLimiter{}, limiter)
	defer limiter.Close()

	info, err := limiter.Allow(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.True(t, info.Allowed)

	info, err = limiter.Allow(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.False(t, info.Allowed)
}
