package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/pairlab/backend/pkg/config"
)

const connectTimeout = 3 * time.Second

// Client wraps the Redis client shared by the evaluation cache and the feed rate limiter
// ⭐ SSOT: Redis 연결은 여기서만 관리
//
// A disabled client (REDIS_ENABLED=false) is valid: the cache misses and the limiter admits everything.
type Client struct {
	rdb  *redis.Client
	addr string
}

// New creates a Redis client, or a disabled one when Redis is not enabled
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{}, nil
	}

	addr := net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: connectTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection to %s failed: %w", addr, err)
	}

	return &Client{rdb: rdb, addr: addr}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled returns whether Redis is enabled
func (c *Client) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Addr returns host:port, empty when disabled
func (c *Client) Addr() string {
	return c.addr
}

// Ping checks the connection; a disabled client always succeeds
func (c *Client) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Redis returns the underlying redis client for advanced usage
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
