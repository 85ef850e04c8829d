package http

import (
	"taskhive/internal/adapter/http/handler"
	"taskhive/internal/adapter/telemetry"
	"taskhive/internal/core/port"
	"taskhive/internal/core/service"
	"taskhive/pkg/config"
)

type Container struct {
	Config *config.Config

	UserRepo port.UserRepository
	Cache    port.CacheRepository
	Notifier port.Notifier

	TokenService port.TokenService
	AuthService  port.AuthService

	AuthHandler *handler.AuthHandler

	Metrics *telemetry.AppMetrics
}

func NewContainer(cfg *config.Config, userRepo port.UserRepository, cache port.CacheRepository, notifier port.Notifier, metrics *telemetry.AppMetrics) *Container {
	tokenSvc := service.NewTokenService(cfg, cache)
	authSvc := service.NewAuthService(cfg, userRepo, tokenSvc, cache, notifier)

	authHandler := handler.NewAuthHandler(authSvc, metrics)

	return &Container{
		Config: cfg,

		UserRepo: userRepo,
		Cache:    cache,
		Notifier: notifier,

		TokenService: tokenSvc,
		AuthService:  authSvc,

		AuthHandler: authHandler,

		Metrics: metrics,
	}
}
