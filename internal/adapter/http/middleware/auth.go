package middleware

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"taskhive/internal/adapter/http/helper"
	"taskhive/internal/adapter/telemetry"
	"taskhive/internal/core/domain"
	"taskhive/internal/core/port"
)

const (
	ContextUserKey  = "current_user"
	ContextTokenKey = "access_token"
)

// AuthGate is the per-request authentication entry point: bearer extraction,
// revocation check, signature verification, then a fresh identity reload.
// Authorization-sensitive fields are never trusted from stale claims.
func AuthGate(tokens port.TokenService, users port.UserRepository, metrics *telemetry.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		bearer := c.GetHeader("Authorization")

		if bearer == "" {
			helper.SendUnauthorizedError(c, "no token provided")
			c.Abort()
			return
		}

		if !strings.HasPrefix(bearer, "Bearer ") {
			helper.SendUnauthorizedError(c, "invalid authorization format")
			c.Abort()
			return
		}

		raw := strings.TrimPrefix(bearer, "Bearer ")

		revoked, err := tokens.IsRevoked(ctx, raw)

		if err != nil {
			slog.Error("revocation check failed", "error", err)
			helper.SendInternalError(c, "something went wrong")
			c.Abort()
			return
		}

		if revoked {
			if metrics != nil {
				metrics.RecordRevokedRejection()
			}
			helper.SendUnauthorizedError(c, "token has been revoked")
			c.Abort()
			return
		}

		claims, err := tokens.VerifyAccess(raw)

		if err != nil {
			helper.SendUnauthorizedError(c, "invalid token")
			c.Abort()
			return
		}

		user, err := users.GetByUUID(ctx, claims.UserUUID)

		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				helper.SendNotFoundError(c, "user not found")
			} else {
				slog.Error("identity reload failed", "error", err)
				helper.SendInternalError(c, "something went wrong")
			}
			c.Abort()
			return
		}

		if !user.Active || user.IsDeleted() {
			helper.SendForbiddenError(c, "account is deactivated")
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextTokenKey, raw)

		c.Next()
	}
}

// CurrentUser returns the identity attached by the auth gate.
func CurrentUser(c *gin.Context) (domain.User, bool) {
	value, ok := c.Get(ContextUserKey)

	if !ok {
		return domain.User{}, false
	}

	user, ok := value.(domain.User)

	return user, ok
}

// CurrentToken returns the raw bearer token attached by the auth gate.
func CurrentToken(c *gin.Context) (string, bool) {
	value, ok := c.Get(ContextTokenKey)

	if !ok {
		return "", false
	}

	token, ok := value.(string)

	return token, ok
}

// RequirePermission gates a route on one capability from the role matrix.
// It must run after AuthGate.
func RequirePermission(capability domain.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)

		if !ok {
			helper.SendUnauthorizedError(c, "authentication required")
			c.Abort()
			return
		}

		if !domain.Can(user.Role, capability) {
			helper.SendForbiddenError(c, "permission denied")
			c.Abort()
			return
		}

		c.Next()
	}
}
