// Package cache keeps top-k results in Redis. Keys embed the index version a
// result was computed at, so a merge makes every older entry unreachable
// without deleting anything; the TTL reclaims them.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/topk"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/resilience"
)

const (
	keyPrefix   = "topk:"
	breakerName = "redis-cache"
)

// Store is satisfied by *redis.Client.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	client  Store
	cfg     config.RedisConfig
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache. m may be nil.
func New(client Store, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	cbCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     10 * time.Second,
		// A caller that went away says nothing about Redis.
		IsFailure: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
	}
	if m != nil {
		m.CircuitBreakerState.WithLabelValues(breakerName).Set(float64(resilience.StateClosed))
		cbCfg.OnStateChange = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker(breakerName, cbCfg),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached result for the keyword pair at the given index
// version. Redis failures count as misses.
func (c *QueryCache) Get(ctx context.Context, version uint64, kw1, kw2 string) (*topk.Result, bool) {
	key := BuildKey(version, kw1, kw2)
	data, err := run(c, ctx, "cache-get", func(ctx context.Context) (string, error) {
		v, err := c.client.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return "", nil
		}
		return v, err
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
	}
	if data == "" {
		c.miss()
		return nil, false
	}
	var result topk.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "keyword1", kw1, "keyword2", kw2, "key", key)
	return &result, true
}

// Set stores result under the version it was computed at.
func (c *QueryCache) Set(ctx context.Context, result *topk.Result) {
	key := BuildKey(result.Version, result.Keywords[0], result.Keywords[1])
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	_, err = run(c, ctx, "cache-set", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.client.Set(ctx, key, data, c.cfg.CacheTTL)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result at version or runs computeFn once
// per key across concurrent callers. A computed result whose version moved
// on is returned but only cached under its own version.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	version uint64,
	kw1, kw2 string,
	computeFn func() (*topk.Result, error),
) (*topk.Result, bool, error) {
	if result, ok := c.Get(ctx, version, kw1, kw2); ok {
		return result, true, nil
	}
	key := BuildKey(version, kw1, kw2)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*topk.Result), false, nil
}

func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := run(c, ctx, "cache-invalidate", func(ctx context.Context) (int64, error) {
		return c.client.FlushByPattern(ctx, keyPrefix+"*")
	})
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the Redis circuit breaker state.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

// run sends one Redis operation through the circuit breaker with the
// per-operation timeout.
func run[T any](c *QueryCache, ctx context.Context, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := c.breaker.Execute(func() error {
		v, err := resilience.WithTimeoutValue(ctx, c.cfg.OpTimeout, name, fn)
		out = v
		return err
	})
	return out, err
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey derives the cache key. Keyword order is kept because the first
// keyword wins frequency ties.
func BuildKey(version uint64, kw1, kw2 string) string {
	hash := sha256.Sum256([]byte(kw1 + "|" + kw2))
	return fmt.Sprintf("%sv%d:%x", keyPrefix, version, hash[:16])
}
