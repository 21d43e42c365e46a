package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRedisLimiter(t *testing.T) Limiter {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLimiter(client, testLogger())
}

func TestRedisLimiter_AllowsUpToLimit(t *testing.T) {
	limiter := newRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := limiter.Check(ctx, "issue:1.2.3.4", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
	}

	result, err := limiter.Check(ctx, "issue:1.2.3.4", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Zero(t, result.Remaining)
}

func TestRedisLimiter_KeysAreIndependent(t *testing.T) {
	limiter := newRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := limiter.Check(ctx, "issue:1.2.3.4", 2, time.Minute)
		require.NoError(t, err)
	}

	result, err := limiter.Check(ctx, "confirm:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "a different key has its own window")
}

func TestRedisLimiter_ZeroLimitDeniesAll(t *testing.T) {
	limiter := newRedisLimiter(t)

	result, err := limiter.Check(context.Background(), "issue:1.2.3.4", 0, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestRedisLimiter_NilClient(t *testing.T) {
	limiter := &RedisLimiter{log: testLogger()}

	_, err := limiter.Check(context.Background(), "issue:1.2.3.4", 5, time.Minute)
	require.Error(t, err)
}
