package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"taskhive/internal/adapter/http/middleware"
	"taskhive/internal/adapter/telemetry"
	"taskhive/pkg/config"
)

// SetupRouter mounts the auth surface. Everything under the gate group runs
// through the full authentication chain; capability checks stay with the
// individual route.
func SetupRouter(cfg *config.Config, container *Container) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("taskhive"))
	router.Use(metricsMiddleware(container.Metrics))

	if cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimitConfigs, container.Metrics)
		router.Use(limiter.Middleware())
	}

	auth := router.Group("/auth")
	{
		auth.POST("/register", container.AuthHandler.Register)
		auth.POST("/login", container.AuthHandler.Login)
		auth.POST("/refresh", container.AuthHandler.Refresh)
		auth.POST("/verify-email", container.AuthHandler.VerifyEmail)
		auth.POST("/resend-verification", container.AuthHandler.ResendVerification)
		auth.POST("/forgot-password", container.AuthHandler.ForgotPassword)
		auth.GET("/reset-password/validate", container.AuthHandler.ValidateResetToken)
		auth.POST("/reset-password", container.AuthHandler.ResetPassword)
	}

	gate := middleware.AuthGate(container.TokenService, container.UserRepo, container.Metrics)

	protected := router.Group("/auth")
	protected.Use(gate)
	{
		protected.POST("/logout", container.AuthHandler.Logout)
		protected.GET("/me", container.AuthHandler.Me)
	}

	return router
}

func metricsMiddleware(metrics *telemetry.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()

		c.Next()

		metrics.RecordHTTPRequest(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}
