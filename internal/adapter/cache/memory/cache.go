package memory

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"taskhive/internal/core/port"
)

type cacheRepository struct {
	mu    sync.Mutex
	store *gocache.Cache
}

// New returns an in-process expiring key-value store with the same contract
// as the Redis adapter. Used for development and tests.
func New() port.CacheRepository {
	return &cacheRepository{
		store: gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (c *cacheRepository) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.store.Set(key, value, ttl)
	return nil
}

func (c *cacheRepository) Get(ctx context.Context, key string) (string, error) {
	value, ok := c.store.Get(key)

	if !ok {
		return "", port.ErrCacheMiss
	}

	return value.(string), nil
}

// GetDel takes a lock around the read+delete pair; go-cache has no combined
// primitive, and rotation needs the two to be indivisible.
func (c *cacheRepository) GetDel(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.store.Get(key)

	if !ok {
		return "", port.ErrCacheMiss
	}

	c.store.Delete(key)

	return value.(string), nil
}

func (c *cacheRepository) Delete(ctx context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

func (c *cacheRepository) Close() error {
	return nil
}
