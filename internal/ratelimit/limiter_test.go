package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// shortCtx expires long before a one-per-minute limiter refills.
func shortCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	t.Cleanup(cancel)
	return ctx
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		requests  int
		period    time.Duration
		wantLimit rate.Limit
		wantBurst int
	}{
		{"per second", 5, time.Second, 5, 5},
		{"per minute", 60, time.Minute, 1, 60},
		{"sub second", 1, 100 * time.Millisecond, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.requests, tt.period)
			assert.InDelta(t, float64(tt.wantLimit), float64(l.Limit()), 1e-9)
			assert.Equal(t, tt.wantBurst, l.Burst())
		})
	}
}

func TestNewPerSecond_MinimumBurst(t *testing.T) {
	l := NewPerSecond(2, 0)
	assert.Equal(t, 1, l.Burst())
	assert.NoError(t, l.WaitBucket(context.Background(), "public", 1))
}

func TestRateLimiter_WaitBucket(t *testing.T) {
	limiter := New(5, 100*time.Millisecond)

	for i := 0; i < 3; i++ {
		assert.NoError(t, limiter.WaitBucket(context.Background(), "private", 1))
	}

	snap := limiter.Metrics()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(3), snap.AllowedRequests)
	assert.Equal(t, int32(1), snap.BucketCount)
}

func TestRateLimiter_Weight(t *testing.T) {
	limiter := New(5, time.Minute)

	require.NoError(t, limiter.WaitBucket(context.Background(), "key-a", 3))
	assert.Error(t, limiter.WaitBucket(shortCtx(t), "key-a", 3), "only 2 units left")

	snap := limiter.Metrics()
	assert.Equal(t, int64(3), snap.ConsumedWeight)
	assert.Equal(t, int64(1), snap.DeniedRequests)
}

func TestRateLimiter_WeightClampedToBurst(t *testing.T) {
	limiter := New(2, time.Minute)

	require.NoError(t, limiter.WaitBucket(context.Background(), "public", 10), "oversized weight is clamped to burst")
	assert.Equal(t, int64(2), limiter.Metrics().ConsumedWeight)
	assert.Error(t, limiter.WaitBucket(shortCtx(t), "other", 1), "the global budget is spent")
}

func TestRateLimiter_BucketsShareGlobal(t *testing.T) {
	limiter := New(2, time.Minute)

	require.NoError(t, limiter.WaitBucket(context.Background(), "key-a", 1))
	require.NoError(t, limiter.WaitBucket(context.Background(), "key-b", 1))
	assert.Equal(t, int32(2), limiter.Metrics().BucketCount)

	assert.Error(t, limiter.WaitBucket(shortCtx(t), "key-c", 1))
}

func TestRateLimiter_ContextCancellation(t *testing.T) {
	limiter := New(1, time.Minute)

	assert.NoError(t, limiter.WaitBucket(context.Background(), "public", 1))
	assert.Error(t, limiter.WaitBucket(shortCtx(t), "public", 1))
	assert.Equal(t, int64(1), limiter.Metrics().DeniedRequests)
}

func TestRateLimiter_Concurrent(t *testing.T) {
	limiter := New(100, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	results := make(chan error, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- limiter.WaitBucket(ctx, "public", 1)
		}()
	}
	wg.Wait()
	close(results)

	allowed := 0
	for err := range results {
		if err == nil {
			allowed++
		}
	}
	assert.LessOrEqual(t, allowed, 101, "should not allow much more than the burst")
	assert.GreaterOrEqual(t, allowed, 100)
}
