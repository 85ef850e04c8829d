package port

import (
	"context"

	"github.com/google/uuid"

	"taskhive/internal/core/domain"
	"taskhive/internal/core/model/request"
	"taskhive/internal/core/model/response"
)

type AuthService interface {
	Register(ctx context.Context, req *request.SignUpRequest) (*response.RegistrationResult, error)
	Login(ctx context.Context, req *request.LoginRequest) (*response.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*response.TokenPair, error)
	Logout(ctx context.Context, accessToken string)
	VerifyEmail(ctx context.Context, userUUID uuid.UUID, otp string) (domain.User, error)
	ResendVerification(ctx context.Context, userUUID uuid.UUID) error
	ForgotPassword(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, token string) (*response.ResetTokenInfo, error)
	ResetPassword(ctx context.Context, token string, newPassword string) error
}

// TokenService issues, verifies and revokes signed tokens and keeps the
// revocation ledger.
type TokenService interface {
	GeneratePair(ctx context.Context, user *domain.User) (*response.TokenPair, error)
	VerifyAccess(tokenString string) (TokenClaims, error)
	VerifyRefresh(tokenString string) (TokenClaims, error)
	ConsumeRefresh(ctx context.Context, jti string) (string, error)
	Revoke(ctx context.Context, tokenString string)
	IsRevoked(ctx context.Context, tokenString string) (bool, error)
}

// TokenClaims is the decoded claim set of an access or refresh token.
type TokenClaims struct {
	UserUUID    uuid.UUID
	Email       string
	Role        domain.UserRole
	WorkspaceID uuid.UUID
	Permissions []domain.Capability
	JTI         string
	Type        string
	ExpiresAt   int64
	IssuedAt    int64
}
