package pending

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the connection settings for NewRedis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// Redis keeps the flags in Redis so several bot instances share them.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*Redis)(nil)

// NewRedis connects to Redis and pings it. ttl <= 0 means DefaultTTL.
func NewRedis(cfg RedisConfig, ttl time.Duration) (*Redis, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,

		// Timeouts
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		// Retry configuration
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{
		client: client,
		ttl:    ttl,
	}, nil
}

// Close releases the client's connections.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Ping checks that Redis is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.client.Ping(ctx).Err()
}

func (r *Redis) key(userID int64) string {
	return fmt.Sprintf("goto:%d", userID)
}

// Mark sets the user's flag with the store's TTL.
func (r *Redis) Mark(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := r.client.Set(ctx, r.key(userID), 1, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark pending in Redis: %w", err)
	}
	return nil
}

// Pending reports whether the user's flag is set and not yet expired.
func (r *Redis) Pending(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	n, err := r.client.Exists(ctx, r.key(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read pending from Redis: %w", err)
	}
	return n > 0, nil
}

// Clear removes the user's flag.
func (r *Redis) Clear(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear pending in Redis: %w", err)
	}
	return nil
}
