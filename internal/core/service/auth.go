package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskhive/internal/core/domain"
	"taskhive/internal/core/model/request"
	"taskhive/internal/core/model/response"
	"taskhive/internal/core/port"
	"taskhive/internal/core/util"
	"taskhive/pkg/config"
	"taskhive/pkg/tracing"
)

func verificationKey(userUUID uuid.UUID) string {
	return "emailVerification:" + userUUID.String()
}

func resetKey(token string) string {
	return "resetPassword:" + token
}

const resetNeutralMessage = "If an account with that email exists, a password reset link has been sent."

// AuthService orchestrates registration, sessions and self-service account
// recovery on top of the user repository, the token service and the expiring
// key-value store.
type AuthService struct {
	cfg      *config.Config
	repo     port.UserRepository
	tokens   port.TokenService
	cache    port.CacheRepository
	notifier port.Notifier
}

func NewAuthService(cfg *config.Config, repo port.UserRepository, tokens port.TokenService, cache port.CacheRepository, notifier port.Notifier) *AuthService {
	return &AuthService{
		cfg:      cfg,
		repo:     repo,
		tokens:   tokens,
		cache:    cache,
		notifier: notifier,
	}
}

// background runs a best-effort side effect off the request goroutine.
// Failures are logged, never surfaced: email delivery must not fail the
// operation that triggered it.
func (as *AuthService) background(op string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := fn(ctx); err != nil {
			slog.Error("background task failed", "op", op, "error", err)
		}
	}()
}

// Register creates the identity and its default workspace as one atomic unit,
// then dispatches welcome/OTP emails best-effort.
func (as *AuthService) Register(ctx context.Context, req *request.SignUpRequest) (*response.RegistrationResult, error) {
	var result *response.RegistrationResult

	err := tracing.ServiceSpanWrapper(ctx, "auth", "register", func(ctx context.Context) error {
		hashed, err := util.HashPassword(req.Password, as.cfg.BcryptCost)

		if err != nil {
			return domain.Internal("hashing password", err)
		}

		role := domain.Member

		if req.Role != "" {
			role = domain.UserRole(req.Role)
		}

		var emailVerified *bool

		if req.SendOTPVerification {
			pending := false
			emailVerified = &pending
		}

		preferences := domain.DefaultPreferences()

		if req.Preferences != nil {
			if req.Preferences.Notifications != nil {
				preferences.Notifications = *req.Preferences.Notifications
			}
			if req.Preferences.Theme != "" {
				preferences.Theme = req.Preferences.Theme
			}
		}

		now := time.Now()

		user := domain.User{
			UUID:          uuid.New(),
			Username:      req.Username,
			Email:         strings.ToLower(req.Email),
			PasswordHash:  hashed,
			Role:          role,
			Active:        true,
			EmailVerified: emailVerified,
			Profile: domain.Profile{
				FirstName: req.Profile.FirstName,
				LastName:  req.Profile.LastName,
				Avatar:    req.Profile.Avatar,
				Timezone:  req.Profile.Timezone,
			},
			Preferences:  preferences,
			LastActiveAt: now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		workspace := domain.NewDefaultWorkspace(&user)

		saved, err := as.repo.CreateWithWorkspace(ctx, user, workspace)

		if err != nil {
			if domain.IsKind(err, domain.KindConflict) {
				return err
			}
			return domain.Internal("registration failed", err)
		}

		slog.Info("user registered", "email", saved.Email, "workspace", workspace.UUID)

		if req.SendWelcomeEmail {
			data := map[string]any{
				"first_name":     saved.Profile.FirstName,
				"username":       saved.Username,
				"workspace_name": workspace.Name,
			}

			if saved.Role == domain.Admin {
				data["additional_features"] = []string{
					"Admin dashboard access",
					"User management tools",
					"Advanced analytics",
				}
			}

			as.background("welcome_email", func(ctx context.Context) error {
				return as.notifier.Send(ctx, port.EmailWelcome, saved.Email, data)
			})
		}

		if req.SendOTPVerification {
			if err := as.issueVerificationOTP(ctx, &saved, true); err != nil {
				// The user can still request a resend; registration stands.
				slog.Error("failed to issue verification code", "email", saved.Email, "error", err)
			}
		}

		result = &response.RegistrationResult{
			UserID:                    saved.UUID,
			WorkspaceID:               workspace.UUID,
			EmailVerificationRequired: req.SendOTPVerification,
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// issueVerificationOTP stores a fresh code under the user's verification key
// and dispatches the email. The store is synchronous so the code is usable
// even when delivery lags; dispatch may be deferred to the background.
func (as *AuthService) issueVerificationOTP(ctx context.Context, user *domain.User, deferred bool) error {
	otp, err := util.GenerateOTP()

	if err != nil {
		return fmt.Errorf("generating otp: %w", err)
	}

	if err := as.cache.Set(ctx, verificationKey(user.UUID), otp, as.cfg.OTPTTL); err != nil {
		return fmt.Errorf("storing otp: %w", err)
	}

	data := map[string]any{
		"first_name":         user.Profile.FirstName,
		"otp":                otp,
		"expiration_minutes": int(as.cfg.OTPTTL.Minutes()),
		"verification_url":   fmt.Sprintf("%s/verify-email?userId=%s", as.cfg.AppURL, user.UUID),
	}

	send := func(ctx context.Context) error {
		return as.notifier.Send(ctx, port.EmailOTPVerification, user.Email, data)
	}

	if deferred {
		as.background("otp_email", send)
		return nil
	}

	return send(ctx)
}

// Login verifies credentials and opens a session: a fresh access+refresh pair
// plus a sanitized identity projection.
func (as *AuthService) Login(ctx context.Context, req *request.LoginRequest) (*response.LoginResult, error) {
	var result *response.LoginResult

	err := tracing.ServiceSpanWrapper(ctx, "auth", "login", func(ctx context.Context) error {
		user, err := as.repo.GetByEmail(ctx, strings.ToLower(req.Email))

		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return err
			}
			return domain.Internal("looking up user", err)
		}

		if user.VerificationPending() {
			return domain.Forbidden("please verify your email address before logging in")
		}

		if err := util.ComparePassword(req.Password, user.PasswordHash); err != nil {
			slog.Warn("failed login attempt", "email", req.Email)
			return domain.Unauthorized("invalid email or password")
		}

		pair, err := as.tokens.GeneratePair(ctx, &user)

		if err != nil {
			return domain.Internal("issuing tokens", err)
		}

		user.LastActiveAt = time.Now()
		saved, err := as.repo.Save(ctx, user)

		if err != nil {
			// last-active is advisory; the session is already valid.
			slog.Error("failed to update last active", "email", user.Email, "error", err)
			saved = user
		}

		slog.Info("user logged in", "email", saved.Email)

		result = &response.LoginResult{
			User:         response.NewUserResponse(saved.Sanitized()),
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// Refresh rotates a refresh token: the presented handle is consumed
// atomically, so a replay of an already-rotated token fails.
func (as *AuthService) Refresh(ctx context.Context, refreshToken string) (*response.TokenPair, error) {
	var pair *response.TokenPair

	err := tracing.ServiceSpanWrapper(ctx, "auth", "refresh", func(ctx context.Context) error {
		claims, err := as.tokens.VerifyRefresh(refreshToken)

		if err != nil {
			return domain.Unauthorized("invalid refresh token")
		}

		stored, err := as.tokens.ConsumeRefresh(ctx, claims.JTI)

		if err != nil {
			if domain.IsKind(err, domain.KindUnauthorized) {
				return err
			}
			return domain.Internal("consuming refresh handle", err)
		}

		if stored != refreshToken {
			return domain.Unauthorized("invalid refresh token")
		}

		user, err := as.repo.GetByUUID(ctx, claims.UserUUID)

		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return err
			}
			return domain.Internal("looking up user", err)
		}

		if !user.Active {
			return domain.Forbidden("account is deactivated")
		}

		pair, err = as.tokens.GeneratePair(ctx, &user)

		if err != nil {
			return domain.Internal("issuing tokens", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout revokes the presented token best-effort. It never errors back to the
// caller: a malformed token is already invalid.
func (as *AuthService) Logout(ctx context.Context, accessToken string) {
	as.tokens.Revoke(ctx, accessToken)
	slog.Info("user logged out")
}

// VerifyEmail consumes the one-time code. The code leaves the store on the
// first check, right or wrong, so it can never be accepted twice and cannot
// be brute-forced; a mismatch requires a resend.
func (as *AuthService) VerifyEmail(ctx context.Context, userUUID uuid.UUID, otp string) (domain.User, error) {
	user, err := as.repo.GetByUUID(ctx, userUUID)

	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return domain.User{}, err
		}
		return domain.User{}, domain.Internal("looking up user", err)
	}

	if user.EmailVerified != nil && *user.EmailVerified {
		return domain.User{}, domain.Conflict("email already verified")
	}

	stored, err := as.cache.GetDel(ctx, verificationKey(userUUID))

	if errors.Is(err, port.ErrCacheMiss) {
		return domain.User{}, domain.Unauthorized("OTP expired or invalid")
	}

	if err != nil {
		return domain.User{}, domain.Internal("reading verification code", err)
	}

	if stored != otp {
		return domain.User{}, domain.Unauthorized("invalid OTP")
	}

	verified := true
	user.EmailVerified = &verified
	user.UpdatedAt = time.Now()

	saved, err := as.repo.Save(ctx, user)

	if err != nil {
		return domain.User{}, domain.Internal("saving user", err)
	}

	slog.Info("email verified", "email", saved.Email)

	return saved.Sanitized(), nil
}

// ResendVerification issues a fresh code for an unverified account.
func (as *AuthService) ResendVerification(ctx context.Context, userUUID uuid.UUID) error {
	user, err := as.repo.GetByUUID(ctx, userUUID)

	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return err
		}
		return domain.Internal("looking up user", err)
	}

	if user.EmailVerified != nil && *user.EmailVerified {
		return domain.Conflict("email already verified")
	}

	if err := as.issueVerificationOTP(ctx, &user, true); err != nil {
		return domain.Internal("issuing verification code", err)
	}

	return nil
}

// ForgotPassword stores a single-use reset token and mails the reset link.
// The answer is identical whether or not the account exists.
func (as *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := as.repo.GetByEmail(ctx, strings.ToLower(email))

	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			slog.Warn("password reset requested for unknown email", "email", email)
			return nil
		}
		return domain.Internal("looking up user", err)
	}

	token, err := util.GenerateResetToken()

	if err != nil {
		return domain.Internal("generating reset token", err)
	}

	if err := as.cache.Set(ctx, resetKey(token), user.UUID.String(), as.cfg.ResetTokenTTL); err != nil {
		return domain.Internal("storing reset token", err)
	}

	data := map[string]any{
		"first_name":      user.Profile.FirstName,
		"reset_token":     token,
		"reset_url":       fmt.Sprintf("%s/reset-password?token=%s", as.cfg.AppURL, token),
		"expiration_time": "1 hour",
	}

	as.background("password_reset_email", func(ctx context.Context) error {
		return as.notifier.Send(ctx, port.EmailPasswordReset, user.Email, data)
	})

	return nil
}

// ValidateResetToken checks a reset token without consuming it.
func (as *AuthService) ValidateResetToken(ctx context.Context, token string) (*response.ResetTokenInfo, error) {
	userUUID, err := as.lookupResetToken(ctx, token, false)

	if err != nil {
		return nil, err
	}

	user, err := as.repo.GetByUUID(ctx, userUUID)

	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, err
		}
		return nil, domain.Internal("looking up user", err)
	}

	return &response.ResetTokenInfo{
		Valid:     true,
		Email:     user.Email,
		FirstName: user.Profile.FirstName,
	}, nil
}

// ResetPassword consumes the reset token and re-hashes the new password. The
// token is taken out of the store before any work happens, so of two racing
// resets with the same token exactly one goes through.
func (as *AuthService) ResetPassword(ctx context.Context, token string, newPassword string) error {
	userUUID, err := as.lookupResetToken(ctx, token, true)

	if err != nil {
		return err
	}

	user, err := as.repo.GetByUUID(ctx, userUUID)

	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return err
		}
		return domain.Internal("looking up user", err)
	}

	hashed, err := util.HashPassword(newPassword, as.cfg.BcryptCost)

	if err != nil {
		return domain.Internal("hashing password", err)
	}

	user.PasswordHash = hashed
	user.UpdatedAt = time.Now()

	if _, err := as.repo.Save(ctx, user); err != nil {
		return domain.Internal("saving user", err)
	}

	as.background("password_reset_confirmation", func(ctx context.Context) error {
		return as.notifier.Send(ctx, port.EmailPasswordResetDone, user.Email, map[string]any{
			"first_name": user.Profile.FirstName,
		})
	})

	slog.Info("password reset", "email", user.Email)

	return nil
}

// lookupResetToken resolves a reset token to its user. With consume set the
// entry is removed atomically as it is read.
func (as *AuthService) lookupResetToken(ctx context.Context, token string, consume bool) (uuid.UUID, error) {
	read := as.cache.Get

	if consume {
		read = as.cache.GetDel
	}

	stored, err := read(ctx, resetKey(token))

	if errors.Is(err, port.ErrCacheMiss) {
		return uuid.Nil, domain.Unauthorized("invalid or expired reset token")
	}

	if err != nil {
		return uuid.Nil, domain.Internal("reading reset token", err)
	}

	userUUID, err := uuid.Parse(stored)

	if err != nil {
		return uuid.Nil, domain.Internal("corrupt reset token entry", err)
	}

	return userUUID, nil
}
