package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taskhive/internal/core/port"
)

type cacheRepository struct {
	client *redis.Client
}

// New connects to the expiring key-value store backing the revocation ledger
// and the one-time codes.
func New(url string) (port.CacheRepository, error) {
	opts, err := redis.ParseURL(url)

	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &cacheRepository{client: client}, nil
}

func (c *cacheRepository) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *cacheRepository) Get(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()

	if errors.Is(err, redis.Nil) {
		return "", port.ErrCacheMiss
	}

	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}

	return value, nil
}

// GetDel maps onto GETDEL, the server-side atomic check-and-delete that
// refresh rotation relies on.
func (c *cacheRepository) GetDel(ctx context.Context, key string) (string, error) {
	value, err := c.client.GetDel(ctx, key).Result()

	if errors.Is(err, redis.Nil) {
		return "", port.ErrCacheMiss
	}

	if err != nil {
		return "", fmt.Errorf("redis getdel failed: %w", err)
	}

	return value, nil
}

func (c *cacheRepository) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *cacheRepository) Close() error {
	return c.client.Close()
}
