package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_AllowsUpToLimit(t *testing.T) {
	limiter := NewMemoryLimiter(testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "confirm:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 3-(i+1), result.Remaining)
	}

	result, err := limiter.Check(ctx, "confirm:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestMemoryLimiter_WindowSlides(t *testing.T) {
	limiter := NewMemoryLimiter(testLogger())
	ctx := context.Background()

	result, err := limiter.Check(ctx, "issue:1.2.3.4", 1, 20*time.Millisecond)
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = limiter.Check(ctx, "issue:1.2.3.4", 1, 20*time.Millisecond)
	require.NoError(t, err)
	require.False(t, result.Allowed)

	time.Sleep(30 * time.Millisecond)

	result, err = limiter.Check(ctx, "issue:1.2.3.4", 1, 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "old entries fall out of the window")
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter(testLogger())
	ctx := context.Background()

	_, err := limiter.Check(ctx, "issue:1.2.3.4", 1, time.Minute)
	require.NoError(t, err)

	result, err := limiter.Check(ctx, "issue:5.6.7.8", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMemoryLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	limiter := NewMemoryLimiter(testLogger())
	ctx := context.Background()

	_, err := limiter.Check(ctx, "issue:1.2.3.4", 5, time.Minute)
	require.NoError(t, err)
	require.Len(t, limiter.buckets, 1)

	time.Sleep(10 * time.Millisecond)
	limiter.Cleanup(time.Millisecond)

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.buckets)
}
