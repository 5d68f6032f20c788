// Copyright (c) 2026 Howkings. All rights reserved.

package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/howkings/howkings-go/internal/platform/constants"
)

// Opiniated default timeouts for Redis operations.
const (
	redisDialTimeout  = 3 * time.Second
	redisReadTimeout  = 2 * time.Second
	redisWriteTimeout = 2 * time.Second
	redisPingTimeout  = 2 * time.Second
)

// RedisStore is a [Store] backed by a shared Redis instance.
//
// # Usage
//
// Intended for headless or server-side-rendering deployments where several
// client processes must observe one session. All keys are namespaced under
// [constants.RedisPrefixKV].
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore parses a Redis URL, validates connectivity, and returns a
// ready-to-use store.
func NewRedisStore(ctx context.Context, redisURL string, logger *slog.Logger) (*RedisStore, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("kv: invalid redis URL: %w", err)
	}

	options.DialTimeout = redisDialTimeout
	options.ReadTimeout = redisReadTimeout
	options.WriteTimeout = redisWriteTimeout

	client := redis.NewClient(options)

	// Validate connectivity immediately at startup.
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("kv: redis ping failed: %w", err)
	}

	logger.Info("redis_store_connected", slog.String("addr", options.Addr))

	return &RedisStore{client: client}, nil
}

// Get returns the value for key, or [ErrNotFound].
func (store *RedisStore) Get(ctx context.Context, key string) (string, error) {
	value, err := store.client.Get(ctx, constants.RedisPrefixKV+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("kv: redis get: %w", err)
	}
	return value, nil
}

// Set writes the value for key without expiry; the client owns the lifecycle
// of every entry it stores.
func (store *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := store.client.Set(ctx, constants.RedisPrefixKV+key, value, 0).Err(); err != nil {
		return fmt.Errorf("kv: redis set: %w", err)
	}
	return nil
}

// Delete removes the key. Absent keys are ignored.
func (store *RedisStore) Delete(ctx context.Context, key string) error {
	if err := store.client.Del(ctx, constants.RedisPrefixKV+key).Err(); err != nil {
		return fmt.Errorf("kv: redis delete: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (store *RedisStore) Close() error {
	return store.client.Close()
}
