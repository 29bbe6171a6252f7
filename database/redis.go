package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient initializes and returns a Redis client.
func NewRedisClient(redisURL string, logger *zap.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	logger.Info("Connected to Redis")
	return client, nil
}

// RedisBatchLocker implements a cross-process lock with SET NX + TTL. Used
// to keep two monthly-billing triggers from running the same period at once.
type RedisBatchLocker struct {
	client *redis.Client
}

// NewRedisBatchLocker creates a RedisBatchLocker.
func NewRedisBatchLocker(client *redis.Client) *RedisBatchLocker {
	return &RedisBatchLocker{client: client}
}

// Acquire takes the lock, returning false when another holder owns it.
func (l *RedisBatchLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, "locked", ttl).Result()
}

// Release drops the lock.
func (l *RedisBatchLocker) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}
