package port

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get/GetDel when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// CacheRepository is the expiring key-value store behind the revocation
// ledger and the one-time codes. Every write carries an explicit TTL so the
// store self-prunes.
type CacheRepository interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	// GetDel atomically reads and deletes the key. This is the single
	// cross-request coordination point: of two concurrent refresh attempts
	// on one handle, exactly one observes the value.
	GetDel(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
