package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wonny/pairlab/backend/pkg/config"
)

// slidingWindow admits a request when fewer than ARGV[3] requests were stamped in the trailing window.
// Members are unique per request so that concurrent processes never overwrite each other.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)
	if count < limit then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	end
	return {0, 0}
`)

// RateLimiter implements sliding window rate limiting using Redis
// ⭐ SSOT: 프로세스 간 피드 요청 제한은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Key    string        // Unique identifier (e.g., "feed")
	Limit  int           // Maximum requests allowed
	Window time.Duration // Time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
	}
}

// Allow checks if a request is allowed under the rate limit
// Returns (allowed, remaining, error)
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() {
		return true, cfg.Limit, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := time.Now().UnixMilli()

	result, err := slidingWindow.Run(ctx, r.client.Redis(), []string{key},
		now,
		now-cfg.Window.Milliseconds(),
		cfg.Limit,
		cfg.Window.Milliseconds(),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	return result[0] == 1, int(result[1]), nil
}

// Wait blocks until a request is allowed or ctx is cancelled.
// Between attempts it sleeps one slot of the window (Window / Limit).
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	backoff := cfg.Window / time.Duration(max(cfg.Limit, 1))
	for {
		allowed, _, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// FeedRateLimit caps price feed downloads across every process sharing the Redis
var FeedRateLimit = RateLimitConfig{
	Key:    "feed",
	Limit:  5,
	Window: time.Second,
}

// FeedRateLimitFor derives the shared feed limit from FEED_RPS and FEED_BURST
func FeedRateLimitFor(cfg *config.Config) RateLimitConfig {
	limit := int(math.Ceil(cfg.Feed.RequestsPerSecond))
	if cfg.Feed.Burst > limit {
		limit = cfg.Feed.Burst
	}
	if limit < 1 {
		return FeedRateLimit
	}
	return RateLimitConfig{Key: FeedRateLimit.Key, Limit: limit, Window: time.Second}
}
