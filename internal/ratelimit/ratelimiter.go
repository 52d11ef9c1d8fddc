// Package ratelimit enforces a short-window requests-per-minute cap per
// API key, in front of the lifetime quota the store meters. It exists so
// a burst from one key cannot monopolize the summarizer pipeline before
// the quota runs out.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter is used to enforce per-key request rates.
type Limiter interface {
	Allow(ctx context.Context, keyID string) (bool, error)
}

// NoopLimiter allows all requests; used when Redis is not configured.
type NoopLimiter struct{}

func NewNoopLimiter() *NoopLimiter {
	return &NoopLimiter{}
}

func (l *NoopLimiter) Allow(ctx context.Context, keyID string) (bool, error) {
	return true, nil
}

// RateLimiter implements a distributed sliding window over Redis sorted
// sets. One instance serves all keys with a single per-minute limit.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter creates a limiter allowing limit requests per minute per
// key. A non-positive limit disables limiting.
func NewRateLimiter(client *redis.Client, limit int) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: time.Minute,
	}
}

// Allow records the request and reports whether it fits in the current
// window.
func (rl *RateLimiter) Allow(ctx context.Context, keyID string) (bool, error) {
	if rl.limit <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("ratelimit:%s", keyID)
	now := time.Now()
	windowStart := now.Add(-rl.window)

	pipe := rl.client.Pipeline()

	// Drop entries that fell out of the window, count what remains, then
	// record this request.
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixMilli()))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: fmt.Sprintf("%d:%d", now.UnixMilli(), now.Nanosecond()),
	})
	pipe.Expire(ctx, key, 2*rl.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	return int(countCmd.Val()) < rl.limit, nil
}

// Reset clears the window for a key.
func (rl *RateLimiter) Reset(ctx context.Context, keyID string) error {
	return rl.client.Del(ctx, fmt.Sprintf("ratelimit:%s", keyID)).Err()
}
