package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskhive/internal/core/domain"
	"taskhive/internal/core/model/response"
	"taskhive/internal/core/port"
	"taskhive/pkg/config"
)

const refreshTokenType = "refresh"

func refreshKey(jti string) string {
	return "refresh:" + jti
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}

// TokenService signs and verifies access/refresh tokens and keeps the
// revocation ledger in the expiring key-value store. Access and refresh
// tokens are signed with separate secrets.
type TokenService struct {
	cfg   *config.Config
	cache port.CacheRepository
}

func NewTokenService(cfg *config.Config, cache port.CacheRepository) *TokenService {
	return &TokenService{cfg: cfg, cache: cache}
}

func (ts *TokenService) issueAccessToken(user *domain.User, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":         user.UUID.String(),
		"email":       user.Email,
		"role":        string(user.Role),
		"permissions": domain.PermissionsFor(user.Role),
		"jti":         uuid.NewString(),
		"iat":         now.Unix(),
		"exp":         now.Add(ts.cfg.AccessTokenTTL).Unix(),
	}

	if ws, ok := user.PrimaryWorkspace(); ok {
		claims["workspace_id"] = ws.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(ts.cfg.JWTSecret))
}

func (ts *TokenService) issueRefreshToken(user *domain.User, now time.Time) (string, string, error) {
	jti := uuid.NewString()

	claims := jwt.MapClaims{
		"sub":  user.UUID.String(),
		"type": refreshTokenType,
		"jti":  jti,
		"iat":  now.Unix(),
		"exp":  now.Add(ts.cfg.RefreshTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(ts.cfg.JWTRefreshSecret))

	if err != nil {
		return "", "", err
	}

	return signed, jti, nil
}

// GeneratePair issues a fresh access+refresh pair and registers the live
// refresh handle under its jti, so rotation invalidates exactly one lineage.
func (ts *TokenService) GeneratePair(ctx context.Context, user *domain.User) (*response.TokenPair, error) {
	now := time.Now()

	accessToken, err := ts.issueAccessToken(user, now)

	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	refreshToken, jti, err := ts.issueRefreshToken(user, now)

	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	if err := ts.cache.Set(ctx, refreshKey(jti), refreshToken, ts.cfg.RefreshTokenTTL); err != nil {
		return nil, fmt.Errorf("registering refresh handle: %w", err)
	}

	return &response.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (ts *TokenService) verify(tokenString, secret string) (port.TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	if err != nil {
		return port.TokenClaims{}, err
	}

	if !token.Valid {
		return port.TokenClaims{}, errors.New("invalid token")
	}

	return parseClaims(token.Claims.(jwt.MapClaims))
}

func (ts *TokenService) VerifyAccess(tokenString string) (port.TokenClaims, error) {
	claims, err := ts.verify(tokenString, ts.cfg.JWTSecret)

	if err != nil {
		return port.TokenClaims{}, err
	}

	if claims.Type == refreshTokenType {
		return port.TokenClaims{}, errors.New("refresh token used as access token")
	}

	return claims, nil
}

func (ts *TokenService) VerifyRefresh(tokenString string) (port.TokenClaims, error) {
	claims, err := ts.verify(tokenString, ts.cfg.JWTRefreshSecret)

	if err != nil {
		return port.TokenClaims{}, err
	}

	if claims.Type != refreshTokenType {
		return port.TokenClaims{}, errors.New("not a refresh token")
	}

	return claims, nil
}

// ConsumeRefresh atomically reads and deletes the live refresh handle. Of two
// concurrent refresh attempts with the same token, exactly one gets the
// stored value back; the other observes a miss.
func (ts *TokenService) ConsumeRefresh(ctx context.Context, jti string) (string, error) {
	stored, err := ts.cache.GetDel(ctx, refreshKey(jti))

	if errors.Is(err, port.ErrCacheMiss) {
		return "", domain.Unauthorized("invalid refresh token")
	}

	if err != nil {
		return "", fmt.Errorf("consuming refresh handle: %w", err)
	}

	return stored, nil
}

// Revoke blacklists the presented token for the remainder of its lifetime.
// The claims are decoded without requiring a valid signature: a malformed
// token is already unusable and only logged. Revoke never fails the caller.
func (ts *TokenService) Revoke(ctx context.Context, tokenString string) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})

	if err != nil {
		slog.Warn("tried to revoke malformed token", "error", err)
		return
	}

	claims, err := parseClaims(token.Claims.(jwt.MapClaims))

	if err != nil {
		slog.Warn("tried to revoke token with malformed claims", "error", err)
		return
	}

	remaining := time.Until(time.Unix(claims.ExpiresAt, 0))

	if claims.ExpiresAt == 0 || remaining <= 0 {
		return
	}

	if claims.Type == refreshTokenType && claims.JTI != "" {
		if err := ts.cache.Delete(ctx, refreshKey(claims.JTI)); err != nil {
			slog.Warn("failed to drop refresh handle on revoke", "jti", claims.JTI, "error", err)
		}
	}

	// TTL mirrors the token's own exp so the ledger self-prunes.
	if err := ts.cache.Set(ctx, blacklistKey(tokenString), "revoked", remaining); err != nil {
		slog.Error("failed to blacklist token", "error", err)
	}
}

// IsRevoked checks the blacklist by the raw token string, which lets the auth
// gate reject revoked tokens before spending a signature verification.
func (ts *TokenService) IsRevoked(ctx context.Context, tokenString string) (bool, error) {
	_, err := ts.cache.Get(ctx, blacklistKey(tokenString))

	if errors.Is(err, port.ErrCacheMiss) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("checking revocation: %w", err)
	}

	return true, nil
}

func parseClaims(mc jwt.MapClaims) (port.TokenClaims, error) {
	claims := port.TokenClaims{}

	sub, ok := mc["sub"].(string)

	if !ok {
		return claims, errors.New("missing subject claim")
	}

	userUUID, err := uuid.Parse(sub)

	if err != nil {
		return claims, fmt.Errorf("parsing subject claim: %w", err)
	}

	claims.UserUUID = userUUID

	if email, ok := mc["email"].(string); ok {
		claims.Email = email
	}

	if role, ok := mc["role"].(string); ok {
		claims.Role = domain.UserRole(role)
	}

	if ws, ok := mc["workspace_id"].(string); ok {
		if parsed, err := uuid.Parse(ws); err == nil {
			claims.WorkspaceID = parsed
		}
	}

	if perms, ok := mc["permissions"].([]any); ok {
		for _, p := range perms {
			if s, ok := p.(string); ok {
				claims.Permissions = append(claims.Permissions, domain.Capability(s))
			}
		}
	}

	if jti, ok := mc["jti"].(string); ok {
		claims.JTI = jti
	}

	if typ, ok := mc["type"].(string); ok {
		claims.Type = typ
	}

	if exp, ok := mc["exp"].(float64); ok {
		claims.ExpiresAt = int64(exp)
	}

	if iat, ok := mc["iat"].(float64); ok {
		claims.IssuedAt = int64(iat)
	}

	return claims, nil
}
