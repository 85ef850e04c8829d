package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"taskhive/internal/adapter/telemetry"
	"taskhive/pkg/config"
)

type rateLimitEntry struct {
	Count     int
	ResetTime time.Time
}

// RateLimiter applies the per-path request budgets from the configuration,
// keyed by client IP.
type RateLimiter struct {
	cache   *gocache.Cache
	configs map[string]config.RateLimitConfig
	metrics *telemetry.AppMetrics
	mutex   sync.Mutex
}

func NewRateLimiter(configs map[string]config.RateLimitConfig, metrics *telemetry.AppMetrics) *RateLimiter {
	return &RateLimiter{
		cache:   gocache.New(5*time.Minute, 10*time.Minute),
		configs: configs,
		metrics: metrics,
	}
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		limit, ok := rl.configs[path]

		if !ok {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s|%s", path, c.ClientIP())

		if !rl.allow(key, limit) {
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitHit(path)
			}

			c.JSON(http.StatusTooManyRequests, gin.H{
				"errors": []string{"Too many requests"},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) allow(key string, limit config.RateLimitConfig) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()

	if value, found := rl.cache.Get(key); found {
		entry := value.(rateLimitEntry)

		if now.Before(entry.ResetTime) {
			if entry.Count >= limit.Requests {
				return false
			}

			entry.Count++
			rl.cache.Set(key, entry, time.Until(entry.ResetTime))
			return true
		}
	}

	rl.cache.Set(key, rateLimitEntry{
		Count:     1,
		ResetTime: now.Add(limit.Window),
	}, limit.Window)

	return true
}
