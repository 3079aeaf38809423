package cache

import (
	"context"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"arbor/internal/domain"
)

// RedisConfig holds connection settings for the Redis-backed cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache implements Cache on a single Redis instance. Batches map to
// Redis transaction pipelines: all queued commands are sent and applied as
// one round trip.
type RedisCache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedisCache creates a Redis-backed cache and verifies connectivity.
func NewRedisCache(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, &domain.CacheUnavailableError{Op: "ping", Cause: err}
	}

	return &RedisCache{rdb: rdb, logger: logger}, nil
}

// Get returns the value for key. Backend errors other than a plain miss are
// logged and reported as misses so reads fall back to the store.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
		}
		return nil, nil
	}
	return val, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return &domain.CacheUnavailableError{Op: "set", Cause: err}
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return &domain.CacheUnavailableError{Op: "delete", Cause: err}
	}
	return nil
}

func (c *RedisCache) Batch() Batch {
	return &redisBatch{pipe: c.rdb.TxPipeline()}
}

// Close releases the underlying Redis connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

type redisBatch struct {
	pipe redis.Pipeliner
	ops  int
}

func (b *redisBatch) Set(key string, value []byte, ttl time.Duration) {
	b.pipe.Set(context.Background(), key, value, ttl)
	b.ops++
}

func (b *redisBatch) Delete(keys ...string) {
	if len(keys) == 0 {
		return
	}
	b.pipe.Del(context.Background(), keys...)
	b.ops += len(keys)
}

func (b *redisBatch) Len() int {
	return b.ops
}

func (b *redisBatch) Commit(ctx context.Context) error {
	if b.ops == 0 {
		return nil
	}
	if _, err := b.pipe.Exec(ctx); err != nil && err != redis.Nil {
		return &domain.CacheUnavailableError{Op: "batch commit", Cause: err}
	}
	return nil
}
