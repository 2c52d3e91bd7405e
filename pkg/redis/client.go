// Package redis wraps go-redis/v9 for the query cache: string get/set with
// TTL, and invalidation of a whole key prefix.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
)

// scanBatch is the SCAN COUNT hint and the largest DEL issued at once.
const scanBatch = 100

// Client wraps a go-redis client.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a Redis client and verifies the connection with a PING.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(options(cfg))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

func options(cfg config.RedisConfig) *redis.Options {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}
	// Socket timeouts follow the per-operation budget so a stalled server
	// frees the pool connection instead of holding it.
	if cfg.OpTimeout > 0 {
		opts.ReadTimeout = cfg.OpTimeout
		opts.WriteTimeout = cfg.OpTimeout
	}
	return opts
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Set stores value with the given TTL. A zero TTL never expires.
func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// FlushByPattern deletes every key matching the glob pattern and returns
// how many were removed. The scan completes before any DEL is issued, so
// deletes never shift the cursor under a running iteration.
func (c *Client) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scanning pattern %s: %w", pattern, err)
	}

	var deleted int64
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		n, err := c.rdb.Del(ctx, keys[start:end]...).Result()
		deleted += n
		if err != nil {
			return deleted, fmt.Errorf("deleting keys matching %s: %w", pattern, err)
		}
	}
	return deleted, nil
}

// IsNilError reports whether err is a Redis nil (key-not-found) error.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
