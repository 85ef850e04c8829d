package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	postgres "taskhive/internal/adapter/database/postgres"
	pgrepository "taskhive/internal/adapter/database/postgres/repository"
	sqlite "taskhive/internal/adapter/database/sqlite"
	sqliterepository "taskhive/internal/adapter/database/sqlite/repository"

	memorycache "taskhive/internal/adapter/cache/memory"
	rediscache "taskhive/internal/adapter/cache/redis"

	"taskhive/internal/adapter/notifier"
	"taskhive/internal/adapter/telemetry"
	"taskhive/internal/core/port"
	"taskhive/pkg/config"
)

// newLedger connects the expiring key-value store behind sessions and
// one-time codes. Outside development an unreachable Redis is fatal: the
// in-process fallback would drop every live session on restart and cannot be
// shared across instances.
func newLedger(cfg *config.Config) (port.CacheRepository, error) {
	cache, err := rediscache.New(cfg.RedisURL)

	if err == nil {
		return cache, nil
	}

	if cfg.Environment != "development" {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	slog.Warn("redis unavailable, using in-process ledger", "error", err)

	return memorycache.New(), nil
}

// StartServer wires the adapters picked by the configuration and serves until
// the listener fails. Postgres is used when DATABASE_URL is set, otherwise
// the sqlite development database.
func StartServer(cfg *config.Config, metrics *telemetry.AppMetrics) error {
	var userRepo port.UserRepository

	if cfg.DatabaseURL != "" {
		db, err := postgres.NewDB(cfg.DatabaseURL)

		if err != nil {
			return err
		}

		defer db.Close()

		userRepo = pgrepository.NewUserRepository(db)
	} else {
		db, err := sqlite.NewDB(cfg.DatabasePath)

		if err != nil {
			return err
		}

		defer db.Close()

		userRepo = sqliterepository.NewUserRepository(db)
	}

	cache, err := newLedger(cfg)

	if err != nil {
		return err
	}

	defer cache.Close()

	container := NewContainer(cfg, userRepo, cache, notifier.NewLogNotifier(), metrics)
	router := SetupRouter(cfg, container)

	slog.Info("Server starting",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"rate_limit_enabled", cfg.RateLimitEnabled)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Server failed to start", "error", err)
		return err
	}

	return nil
}
