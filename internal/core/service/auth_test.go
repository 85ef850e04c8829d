package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	memorycache "taskhive/internal/adapter/cache/memory"
	memorydb "taskhive/internal/adapter/database/memory"
	"taskhive/internal/core/domain"
	"taskhive/internal/core/model/request"
	"taskhive/internal/core/port"
	"taskhive/pkg/config"
)

type sentEmail struct {
	Kind      port.EmailKind
	Recipient string
	Data      map[string]any
}

// recordingNotifier captures outbound emails so tests can observe the
// best-effort background deliveries.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (n *recordingNotifier) Send(ctx context.Context, kind port.EmailKind, recipient string, data map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sent = append(n.sent, sentEmail{Kind: kind, Recipient: recipient, Data: data})
	return nil
}

func (n *recordingNotifier) Sent() []sentEmail {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]sentEmail, len(n.sent))
	copy(out, n.sent)
	return out
}

func (n *recordingNotifier) lastOf(kind port.EmailKind) (sentEmail, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Kind == kind {
			return n.sent[i], true
		}
	}

	return sentEmail{}, false
}

type AuthServiceSuite struct {
	suite.Suite
	cfg      *config.Config
	repo     *memorydb.UserRepository
	cache    port.CacheRepository
	notifier *recordingNotifier
	tokens   *TokenService
	svc      *AuthService
}

func (s *AuthServiceSuite) SetupTest() {
	s.cfg = &config.Config{
		AppURL:           "http://localhost:5173",
		JWTSecret:        "access-secret",
		JWTRefreshSecret: "refresh-secret",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  time.Hour,
		OTPTTL:           10 * time.Minute,
		ResetTokenTTL:    time.Hour,
		BcryptCost:       4,
	}

	s.repo = memorydb.NewUserRepository()
	s.cache = memorycache.New()
	s.notifier = &recordingNotifier{}
	s.tokens = NewTokenService(s.cfg, s.cache)
	s.svc = NewAuthService(s.cfg, s.repo, s.tokens, s.cache, s.notifier)
}

func TestAuthServiceSuite(t *testing.T) {
	RegisterTestingT(t)
	suite.Run(t, new(AuthServiceSuite))
}

func signUpRequest() *request.SignUpRequest {
	return &request.SignUpRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
		Profile:  request.ProfileRequest{FirstName: "Alice", LastName: "Smith"},
	}
}

func (s *AuthServiceSuite) TestRegisterCreatesUserAndWorkspace() {
	ctx := context.Background()

	result, err := s.svc.Register(ctx, signUpRequest())

	assert.NoError(s.T(), err)
	assert.NotEqual(s.T(), uuid.Nil, result.UserID)
	assert.False(s.T(), result.EmailVerificationRequired)

	user, err := s.repo.GetByUUID(ctx, result.UserID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), "alice@example.com", user.Email)
	assert.Equal(s.T(), domain.Member, user.Role)
	assert.True(s.T(), user.Active)
	assert.Nil(s.T(), user.EmailVerified)
	assert.NotEqual(s.T(), "secret123", user.PasswordHash)
	assert.Equal(s.T(), domain.DefaultPreferences(), user.Preferences)

	workspace, ok := s.repo.GetWorkspace(result.WorkspaceID)
	assert.True(s.T(), ok)
	assert.Equal(s.T(), "alice's Workspace", workspace.Name)
	assert.Equal(s.T(), result.UserID, workspace.OwnerUUID)

	primary, ok := user.PrimaryWorkspace()
	assert.True(s.T(), ok)
	assert.Equal(s.T(), result.WorkspaceID, primary)
}

func (s *AuthServiceSuite) TestRegisterNormalizesEmail() {
	ctx := context.Background()

	req := signUpRequest()
	req.Email = "Alice@Example.COM"

	result, err := s.svc.Register(ctx, req)
	assert.NoError(s.T(), err)

	user, err := s.repo.GetByUUID(ctx, result.UserID)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), "alice@example.com", user.Email)
}

func (s *AuthServiceSuite) TestRegisterDuplicateEmail() {
	ctx := context.Background()

	_, err := s.svc.Register(ctx, signUpRequest())
	assert.NoError(s.T(), err)

	req := signUpRequest()
	req.Username = "alice2"

	_, err = s.svc.Register(ctx, req)
	assert.True(s.T(), domain.IsKind(err, domain.KindConflict))
}

func (s *AuthServiceSuite) TestRegisterIsAtomic() {
	ctx := context.Background()

	s.repo.WorkspaceHook = func(workspace domain.Workspace) error {
		return errors.New("workspace write failed")
	}

	_, err := s.svc.Register(ctx, signUpRequest())
	assert.Error(s.T(), err)

	// The failed unit must leave no half-created identity behind.
	_, err = s.repo.GetByEmail(ctx, "alice@example.com")
	assert.True(s.T(), domain.IsKind(err, domain.KindNotFound))
}

func (s *AuthServiceSuite) TestRegisterWithWelcomeEmail() {
	ctx := context.Background()

	req := signUpRequest()
	req.SendWelcomeEmail = true

	_, err := s.svc.Register(ctx, req)
	assert.NoError(s.T(), err)

	Eventually(func() int { return len(s.notifier.Sent()) }).Should(BeNumerically(">=", 1))

	email, ok := s.notifier.lastOf(port.EmailWelcome)
	assert.True(s.T(), ok)
	assert.Equal(s.T(), "alice@example.com", email.Recipient)
	assert.Equal(s.T(), "alice's Workspace", email.Data["workspace_name"])
	assert.NotContains(s.T(), email.Data, "additional_features")
}

func (s *AuthServiceSuite) TestRegisterAdminWelcomeEmailListsExtraFeatures() {
	ctx := context.Background()

	req := signUpRequest()
	req.Role = "admin"
	req.SendWelcomeEmail = true

	_, err := s.svc.Register(ctx, req)
	assert.NoError(s.T(), err)

	Eventually(func() bool {
		_, ok := s.notifier.lastOf(port.EmailWelcome)
		return ok
	}).Should(BeTrue())

	email, _ := s.notifier.lastOf(port.EmailWelcome)
	assert.Contains(s.T(), email.Data, "additional_features")
}

func (s *AuthServiceSuite) TestRegisterWithOTPVerification() {
	ctx := context.Background()

	req := signUpRequest()
	req.SendOTPVerification = true

	result, err := s.svc.Register(ctx, req)
	assert.NoError(s.T(), err)
	assert.True(s.T(), result.EmailVerificationRequired)

	user, err := s.repo.GetByUUID(ctx, result.UserID)
	assert.NoError(s.T(), err)
	assert.True(s.T(), user.VerificationPending())

	otp, err := s.cache.Get(ctx, verificationKey(result.UserID))
	assert.NoError(s.T(), err)
	assert.Len(s.T(), otp, 6)

	Eventually(func() bool {
		_, ok := s.notifier.lastOf(port.EmailOTPVerification)
		return ok
	}).Should(BeTrue())

	email, _ := s.notifier.lastOf(port.EmailOTPVerification)
	assert.Equal(s.T(), otp, email.Data["otp"])
}

func (s *AuthServiceSuite) TestLoginSuccess() {
	ctx := context.Background()

	_, err := s.svc.Register(ctx, signUpRequest())
	assert.NoError(s.T(), err)

	result, err := s.svc.Login(ctx, &request.LoginRequest{
		Email:    "alice@example.com",
		Password: "secret123",
	})

	assert.NoError(s.T(), err)
	assert.Equal(s.T(), "alice@example.com", result.User.Email)
	assert.NotEmpty(s.T(), result.AccessToken)
	assert.NotEmpty(s.T(), result.RefreshToken)

	claims, err := s.tokens.VerifyAccess(result.AccessToken)
	assert.NoError(s.T(), err)
	assert.Equal(s.T(), domain.Member, claims.Role)
}

func (s *AuthServiceSuite) TestLoginWrongPassword() {
	ctx := context.Background()

	_, err := s.svc.Register(ctx, signUpRequest())
	assert.NoError(s.T(), err)

	_, err = s.svc.Login(ctx, &request.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})

	assert.True(s.T(), domain.IsKind(err, domain.KindUnauthorized))
}

func (s *AuthServiceSuite) TestLoginUnknownEmail() {
	ctx := context.Background()

	_, err := s.svc.Login(ctx, &request.LoginRequest{
		Email:    "nobody@example.com",
		Password: "secret123",
	})

	assert.True(s.T(), domain.IsKind(err, domain.KindNotFound))
}

func (s *AuthServiceSuite) TestLoginBlockedUntilEmailVerified() {
	ctx := context.Background()

	req := signUpRequest()
	req.SendOTPVerification = true

	result, err := s.svc.Register(ctx, req)
	assert.NoError(s.T(), err)

	login := &request.LoginRequest{Email: "alice@example.com", Password: "secret123"}

	_, err = s.svc.Login(ctx, login)
	assert.True(s.T(), domain.IsKind(err, domain.KindForbidden))

	otp, err := s.cache.Get(ctx, verificationKey(result.UserID))
	assert.NoError(s.T(), err)

	verified, err := s.svc.VerifyEmail(ctx, result.UserID, otp)
	assert.NoError(s.T(), err)
	assert.NotNil(s.T(), verified.EmailVerified)
	assert.True(s.T(), *verified.EmailVerified)

	_, err = s.svc.Login(ctx, login)
	assert.NoError(s.T(), err)
}

func (s *AuthServiceSuite) TestVerifyEmailWrongOTP() {
	ctx := context.Background()

	req := signUpRequest()
	req.SendOTPVerification = true

	result, err := s.svc.Register(ctx, req)
	assert.NoError(s.T(), err)

	_, err = s.svc.VerifyEmail(ctx, result.UserID, "000000")
	assert.True(s.T(), domain.IsKind(err, domain.KindUnauthorized))
}

func (s *AuthServiceSuite) TestVerifyEmailExpiredOTP() {
	ctx := context.Background()

	req := signUpRequest()
	req.SendOTPVerification = true

	result, err := s.svc.Register(ctx, req)
	assert.NoError(s.T(), err)

	assert.NoError(s.T(), s.cache.Delete(ctx, verificationKey(result.UserID)))

	_, err = s.svc.VerifyEmail(ctx, result.UserID, "123456")
	assert.True(s.T(), domain.IsKind(err, domain.KindUnauthorized))
}

func (s *AuthServiceSuite) TestVerifyEmailAlreadyVerified() {
	ctx := context.Background()

	req := signUpRequest()
	req.SendOTPVerification = true

	result, err := s.svc.Register(ctx, req)
	assert.NoError(s.T(), err)

	otp, err := s.cache.Get(ctx, verificationKey(result.UserID))
	assert.NoError(s.T(), err)

	_, err = s.svc.VerifyEmail(ctx, result.UserID, otp)
	assert.NoError(s.T(), err)

	_, err = s.svc.VerifyEmail(ctx, result.UserID, otp)
	assert.True(s.T(), domain.IsKind(err, domain.KindConflict))
}

func (s *AuthServiceSuite) TestResendVerification() {
	ctx := context.Background()

	req := signUpRequest()
	req.SendOTPVerification = true

	result, err := s.svc.Register(ctx, req)
	assert.NoError(s.T(), err)

	first, err := s.cache.Get(ctx, verificationKey(result.UserID))
	assert.NoError(s.T(), err)

	assert.NoError(s.T(), s.svc.ResendVerification(ctx, result.UserID))

	second, err := s.cache.Get(ctx, verificationKey(result.UserID))
	assert.NoError(s.T(), err)
	assert.Len(s.T(), second, 6)
	assert.NotEqual(s.T(), first, second)
}

func (s *AuthServiceSuite) TestRefreshRotationRejectsReplay() {
	ctx := context.Background()

	_, err := s.svc.Register(ctx, signUpRequest())
	assert.NoError(s.T(), err)

	login, err := s.svc.Login(ctx, &request.LoginRequest{
		Email:    "alice@example.com",
		Password: "secret123",
	})
	assert.NoError(s.T(), err)

	rotated, err := s.svc.Refresh(ctx, login.RefreshToken)
	assert.NoError(s.T(), err)
	assert.NotEqual(s.T(), login.RefreshToken, rotated.RefreshToken)

	// The consumed handle is gone; replaying the old token must fail.
	_, err = s.svc.Refresh(ctx, login.RefreshToken)
	assert.True(s.T(), domain.IsKind(err, domain.KindUnauthorized))

	// The rotated token is live.
	_, err = s.svc.Refresh(ctx, rotated.RefreshToken)
	assert.NoError(s.T(), err)
}

func (s *AuthServiceSuite) TestRefreshRejectsGarbage() {
	ctx := context.Background()

	_, err := s.svc.Refresh(ctx, "not-a-jwt")
	assert.True(s.T(), domain.IsKind(err, domain.KindUnauthorized))
}

func (s *AuthServiceSuite) TestRefreshRejectsDeactivatedAccount() {
	ctx := context.Background()

	result, err := s.svc.Register(ctx, signUpRequest())
	assert.NoError(s.T(), err)

	login, err := s.svc.Login(ctx, &request.LoginRequest{
		Email:    "alice@example.com",
		Password: "secret123",
	})
	assert.NoError(s.T(), err)

	user, err := s.repo.GetByUUID(ctx, result.UserID)
	assert.NoError(s.T(), err)

	user.Active = false
	_, err = s.repo.Save(ctx, user)
	assert.NoError(s.T(), err)

	_, err = s.svc.Refresh(ctx, login.RefreshToken)
	assert.True(s.T(), domain.IsKind(err, domain.KindForbidden))
}

func (s *AuthServiceSuite) TestLogoutRevokesToken() {
	ctx := context.Background()

	_, err := s.svc.Register(ctx, signUpRequest())
	assert.NoError(s.T(), err)

	login, err := s.svc.Login(ctx, &request.LoginRequest{
		Email:    "alice@example.com",
		Password: "secret123",
	})
	assert.NoError(s.T(), err)

	s.svc.Logout(ctx, login.AccessToken)

	revoked, err := s.tokens.IsRevoked(ctx, login.AccessToken)
	assert.NoError(s.T(), err)
	assert.True(s.T(), revoked)
}

func (s *AuthServiceSuite) TestForgotPasswordUnknownEmailIsSilent() {
	ctx := context.Background()

	assert.NoError(s.T(), s.svc.ForgotPassword(ctx, "nobody@example.com"))

	Consistently(func() int { return len(s.notifier.Sent()) }, "100ms").Should(BeZero())
}

func (s *AuthServiceSuite) TestPasswordResetFlow() {
	ctx := context.Background()

	_, err := s.svc.Register(ctx, signUpRequest())
	assert.NoError(s.T(), err)

	assert.NoError(s.T(), s.svc.ForgotPassword(ctx, "alice@example.com"))

	Eventually(func() bool {
		_, ok := s.notifier.lastOf(port.EmailPasswordReset)
		return ok
	}).Should(BeTrue())

	email, _ := s.notifier.lastOf(port.EmailPasswordReset)
	token, ok := email.Data["reset_token"].(string)
	assert.True(s.T(), ok)

	info, err := s.svc.ValidateResetToken(ctx, token)
	assert.NoError(s.T(), err)
	assert.True(s.T(), info.Valid)
	assert.Equal(s.T(), "alice@example.com", info.Email)

	assert.NoError(s.T(), s.svc.ResetPassword(ctx, token, "brand-new-pass"))

	_, err = s.svc.Login(ctx, &request.LoginRequest{
		Email:    "alice@example.com",
		Password: "secret123",
	})
	assert.True(s.T(), domain.IsKind(err, domain.KindUnauthorized))

	_, err = s.svc.Login(ctx, &request.LoginRequest{
		Email:    "alice@example.com",
		Password: "brand-new-pass",
	})
	assert.NoError(s.T(), err)

	// The token was consumed with the reset.
	_, err = s.svc.ValidateResetToken(ctx, token)
	assert.True(s.T(), domain.IsKind(err, domain.KindUnauthorized))
}

func (s *AuthServiceSuite) TestVerifyEmailWrongAttemptBurnsCode() {
	ctx := context.Background()

	req := signUpRequest()
	req.SendOTPVerification = true

	result, err := s.svc.Register(ctx, req)
	assert.NoError(s.T(), err)

	otp, err := s.cache.Get(ctx, verificationKey(result.UserID))
	assert.NoError(s.T(), err)

	_, err = s.svc.VerifyEmail(ctx, result.UserID, "000000")
	assert.True(s.T(), domain.IsKind(err, domain.KindUnauthorized))

	// The wrong attempt consumed the code, so the real one no longer works.
	_, err = s.svc.VerifyEmail(ctx, result.UserID, otp)
	assert.True(s.T(), domain.IsKind(err, domain.KindUnauthorized))

	assert.NoError(s.T(), s.svc.ResendVerification(ctx, result.UserID))

	fresh, err := s.cache.Get(ctx, verificationKey(result.UserID))
	assert.NoError(s.T(), err)

	verified, err := s.svc.VerifyEmail(ctx, result.UserID, fresh)
	assert.NoError(s.T(), err)
	assert.True(s.T(), *verified.EmailVerified)
}

func (s *AuthServiceSuite) TestResetPasswordTokenIsSingleUse() {
	ctx := context.Background()

	_, err := s.svc.Register(ctx, signUpRequest())
	assert.NoError(s.T(), err)

	assert.NoError(s.T(), s.svc.ForgotPassword(ctx, "alice@example.com"))

	Eventually(func() bool {
		_, ok := s.notifier.lastOf(port.EmailPasswordReset)
		return ok
	}).Should(BeTrue())

	email, _ := s.notifier.lastOf(port.EmailPasswordReset)
	token, ok := email.Data["reset_token"].(string)
	assert.True(s.T(), ok)

	errs := make(chan error, 2)

	for _, password := range []string{"first-new-pass", "second-new-pass"} {
		password := password
		go func() {
			errs <- s.svc.ResetPassword(ctx, token, password)
		}()
	}

	var failures []error

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			failures = append(failures, err)
		}
	}

	// The token is consumed atomically, so exactly one reset goes through.
	assert.Len(s.T(), failures, 1)
	assert.True(s.T(), domain.IsKind(failures[0], domain.KindUnauthorized))
}

func (s *AuthServiceSuite) TestValidateResetTokenRejectsUnknown() {
	ctx := context.Background()

	_, err := s.svc.ValidateResetToken(ctx, "deadbeef")
	assert.True(s.T(), domain.IsKind(err, domain.KindUnauthorized))
}
