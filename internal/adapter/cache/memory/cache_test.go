package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"taskhive/internal/core/port"
)

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	cache := New()

	assert.NoError(t, cache.Set(ctx, "key", "value", time.Minute))

	value, err := cache.Get(ctx, "key")
	assert.NoError(t, err)
	assert.Equal(t, "value", value)
}

func TestGetMiss(t *testing.T) {
	ctx := context.Background()
	cache := New()

	_, err := cache.Get(ctx, "absent")
	assert.ErrorIs(t, err, port.ErrCacheMiss)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	cache := New()

	assert.NoError(t, cache.Set(ctx, "key", "value", 10*time.Millisecond))

	time.Sleep(20 * time.Millisecond)

	_, err := cache.Get(ctx, "key")
	assert.ErrorIs(t, err, port.ErrCacheMiss)
}

func TestGetDelIsSingleShot(t *testing.T) {
	ctx := context.Background()
	cache := New()

	assert.NoError(t, cache.Set(ctx, "key", "value", time.Minute))

	value, err := cache.GetDel(ctx, "key")
	assert.NoError(t, err)
	assert.Equal(t, "value", value)

	_, err = cache.GetDel(ctx, "key")
	assert.ErrorIs(t, err, port.ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	cache := New()

	assert.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	assert.NoError(t, cache.Delete(ctx, "key"))

	_, err := cache.Get(ctx, "key")
	assert.ErrorIs(t, err, port.ErrCacheMiss)
}
