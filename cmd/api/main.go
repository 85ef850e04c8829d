package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	api "taskhive/internal/adapter/http"
	"taskhive/internal/adapter/telemetry"
	"taskhive/pkg/config"
	"taskhive/pkg/tracing"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()

	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		log.Fatal("JWT_SECRET and JWT_REFRESH_SECRET must be set")
	}

	tel, err := tracing.InitTelemetry(tracing.TelemetryConfig{
		ServiceName:    "taskhive",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		MetricsPort:    "9091",
		OTLPEndpoint:   "localhost:4317",
	})

	if err != nil {
		log.Fatal("Failed to initialize telemetry:", err)
	}

	defer tel.Shutdown(ctx)

	metrics := telemetry.NewAppMetrics(tel.PrometheusRegistry)
	metrics.StartSystemMetrics(ctx)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := api.StartServer(cfg, metrics); err != nil {
			slog.Error("server exited", "error", err)
			os.Exit(1)
		}
	}()

	<-c
	slog.Info("Shutting down gracefully...")
}
