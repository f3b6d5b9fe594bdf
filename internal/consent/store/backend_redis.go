package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"custos/internal/sentinel"
)

// redisKeyPrefix namespaces consent entries in a shared Redis.
const redisKeyPrefix = "custos:consent:"

// RedisBackend is the durable key/value surface for multi-process
// deployments. Change notification is not supported here; cross-instance
// adoption over Redis stays last-writer-wins on read.
type RedisBackend struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBackend wraps a connected go-redis client. ttl bounds entry
// lifetime; zero means no expiry.
func NewRedisBackend(client *redis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

// Name identifies the backend in logs.
func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	value, err := b.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	return b.client.Set(ctx, redisKeyPrefix+key, value, b.ttl).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, redisKeyPrefix+key).Err()
}

var _ Backend = (*RedisBackend)(nil)
