// Package ratelimit throttles venue calls with request weights.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter provides weighted rate limiting with a global limit and
// optional per-bucket limits (for example one bucket per credential).
type RateLimiter struct {
	global  *rate.Limiter
	buckets sync.Map
	limit   rate.Limit
	burst   int
	metrics *Metrics
}

// Metrics tracks statistics about rate limiter usage.
type Metrics struct {
	totalRequests   atomic.Int64
	allowedRequests atomic.Int64
	deniedRequests  atomic.Int64
	consumedWeight  atomic.Int64
	bucketCount     atomic.Int32
}

// New creates a RateLimiter allowing requests units of weight per period.
func New(requests int, period time.Duration) *RateLimiter {
	return NewPerSecond(perSecond(requests, period), requests)
}

// NewPerSecond creates a RateLimiter refilling at limit units per second
// with room for burst units at once.
func NewPerSecond(limit rate.Limit, burst int) *RateLimiter {
	burst = max(burst, 1)
	return &RateLimiter{
		global:  rate.NewLimiter(limit, burst),
		limit:   limit,
		burst:   burst,
		metrics: &Metrics{},
	}
}

func perSecond(requests int, period time.Duration) rate.Limit {
	return rate.Limit(float64(requests) / period.Seconds())
}

// clamp keeps a weight within what the limiter can ever grant.
func (r *RateLimiter) clamp(weight int) int {
	return min(max(weight, 1), r.burst)
}

// Limit returns the refill rate in units per second.
func (r *RateLimiter) Limit() rate.Limit {
	return r.limit
}

// Burst returns the most units a single wait can take.
func (r *RateLimiter) Burst() int {
	return r.burst
}

// WaitBucket blocks until weight units are available in the named bucket
// and globally. Buckets are created on demand with the global limit.
func (r *RateLimiter) WaitBucket(ctx context.Context, bucket string, weight int) error {
	if err := r.wait(ctx, r.getBucket(bucket), weight); err != nil {
		return err
	}
	return r.global.WaitN(ctx, r.clamp(weight))
}

func (r *RateLimiter) wait(ctx context.Context, l *rate.Limiter, weight int) error {
	n := r.clamp(weight)
	r.metrics.totalRequests.Add(1)
	if err := l.WaitN(ctx, n); err != nil {
		r.metrics.deniedRequests.Add(1)
		return err
	}
	r.metrics.allowedRequests.Add(1)
	r.metrics.consumedWeight.Add(int64(n))
	return nil
}

func (r *RateLimiter) getBucket(bucket string) *rate.Limiter {
	if v, ok := r.buckets.Load(bucket); ok {
		return v.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(r.limit, r.burst)

	actual, loaded := r.buckets.LoadOrStore(bucket, limiter)
	if !loaded {
		r.metrics.bucketCount.Add(1)
	}
	return actual.(*rate.Limiter)
}

// Metrics returns a snapshot of the current rate limiter statistics.
func (r *RateLimiter) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalRequests:   r.metrics.totalRequests.Load(),
		AllowedRequests: r.metrics.allowedRequests.Load(),
		DeniedRequests:  r.metrics.deniedRequests.Load(),
		ConsumedWeight:  r.metrics.consumedWeight.Load(),
		BucketCount:     r.metrics.bucketCount.Load(),
	}
}

// MetricsSnapshot is a point-in-time capture of rate limiter statistics.
type MetricsSnapshot struct {
	TotalRequests   int64
	AllowedRequests int64
	DeniedRequests  int64
	ConsumedWeight  int64
	BucketCount     int32
}
