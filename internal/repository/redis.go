package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roombook/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript deletes the lock only while it still carries the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// rateLimitScript counts a call and arms the window in one step; a counter
// left without a TTL gets one on the next call.
var rateLimitScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisCoordinator shares locks and rate-limit counters between instances.
type RedisCoordinator struct {
	client *redis.Client
	prefix string
}

// NewRedisClient builds a client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisCoordinator(client *redis.Client, prefix string) *RedisCoordinator {
	return &RedisCoordinator{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisCoordinator) key(kind, name string) string {
	if r.prefix == "" {
		return kind + ":" + name
	}
	return r.prefix + ":" + kind + ":" + name
}

func (r *RedisCoordinator) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if r.client == nil {
		return "", false, fmt.Errorf("redis client is nil")
	}
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.key("lock", key), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *RedisCoordinator) Unlock(ctx context.Context, key, token string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := unlockScript.Run(ctx, r.client, []string{r.key("lock", key)}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// CheckRateLimit counts calls in a fixed window starting at the first call.
func (r *RedisCoordinator) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	windowMS := window.Milliseconds()
	if windowMS <= 0 {
		windowMS = 1
	}
	count, err := rateLimitScript.Run(ctx, r.client, []string{r.key("rate_limit", key)}, windowMS).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to count rate limit: %w", err)
	}

	return count <= int64(limit), nil
}

// Ping checks the connection.
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
