// Package ratelimit implements fixed-window request counters backed by Redis.
// Counters are the only cross-request state in the application; Redis INCR
// gives the required concurrency-safe increment-and-compare.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stockdesk/stockdesk/internal/shared"
)

const keyPrefix = "ratelimit:"

// Limiter tracks request counts per (action, identity) key within a fixed
// window. Windows expire on wall-clock time via Redis TTL.
type Limiter struct {
	client *redis.Client
}

// NewLimiter constructs a Limiter.
func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// Allow increments the counter for key and fails with shared.RateLimitError
// once the count exceeds max within the active window. The increment is kept
// on rejection so repeated attempts never reset the window early.
func (l *Limiter) Allow(ctx context.Context, key string, max int, window time.Duration) error {
	if l == nil || l.client == nil {
		return errors.New("ratelimit: limiter not initialised")
	}
	if key == "" {
		return errors.New("ratelimit: key required")
	}
	if max <= 0 || window <= 0 {
		return errors.New("ratelimit: max and window must be positive")
	}

	redisKey := keyPrefix + key
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return &shared.StorageError{Op: "ratelimit incr", Err: err}
	}

	if count := incr.Val(); count > int64(max) {
		retryAfter := window
		if ttl, err := l.client.TTL(ctx, redisKey).Result(); err == nil && ttl > 0 {
			retryAfter = ttl
		}
		return &shared.RateLimitError{Action: key, RetryAfter: retryAfter}
	}
	return nil
}
