package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskhive/internal/adapter/http/helper"
	"taskhive/internal/adapter/http/middleware"
	"taskhive/internal/adapter/http/validation"
	"taskhive/internal/adapter/telemetry"
	"taskhive/internal/core/domain"
	"taskhive/internal/core/model/request"
	"taskhive/internal/core/model/response"
	"taskhive/internal/core/port"
)

type AuthHandler struct {
	svc     port.AuthService
	metrics *telemetry.AppMetrics
}

func NewAuthHandler(svc port.AuthService, metrics *telemetry.AppMetrics) *AuthHandler {
	return &AuthHandler{
		svc:     svc,
		metrics: metrics,
	}
}

func (a *AuthHandler) record(operation string, err error) {
	if a.metrics == nil {
		return
	}

	outcome := "success"

	if err != nil {
		outcome = string(domain.KindOf(err))
	}

	a.metrics.RecordAuthOperation(operation, outcome)
}

func (a *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	params, err := bindJSON[request.SignUpRequest](c)

	if err != nil {
		helper.SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := validation.Validator.Struct(params); err != nil {
		helper.SendValidationError(c, err)
		return
	}

	result, err := a.svc.Register(ctx, &params)
	a.record("register", err)

	if err != nil {
		slog.Error("Auth#Register", "error", err)
		helper.SendDomainError(c, err)
		return
	}

	helper.SendSuccess(c, http.StatusCreated, result)
}

func (a *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	params, err := bindJSON[request.LoginRequest](c)

	if err != nil {
		helper.SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := validation.Validator.Struct(params); err != nil {
		helper.SendValidationError(c, err)
		return
	}

	result, err := a.svc.Login(ctx, &params)
	a.record("login", err)

	if err != nil {
		helper.SendDomainError(c, err)
		return
	}

	helper.SendSuccess(c, http.StatusOK, result)
}

func (a *AuthHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()

	params, err := bindJSON[request.RefreshRequest](c)

	if err != nil {
		helper.SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := validation.Validator.Struct(params); err != nil {
		helper.SendValidationError(c, err)
		return
	}

	pair, err := a.svc.Refresh(ctx, params.RefreshToken)
	a.record("refresh", err)

	if err != nil {
		helper.SendDomainError(c, err)
		return
	}

	helper.SendSuccess(c, http.StatusOK, pair)
}

// Logout runs behind the auth gate and never fails the caller.
func (a *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()

	token, ok := middleware.CurrentToken(c)

	if ok {
		a.svc.Logout(ctx, token)

		if a.metrics != nil {
			a.metrics.RecordTokenRevocation()
		}
	}

	helper.SendSuccess(c, http.StatusOK, nil, "Logged out successfully")
}

func (a *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)

	if !ok {
		helper.SendUnauthorizedError(c, "authentication required")
		return
	}

	helper.SendSuccess(c, http.StatusOK, response.NewUserResponse(user.Sanitized()))
}

func (a *AuthHandler) VerifyEmail(c *gin.Context) {
	ctx := c.Request.Context()

	params, err := bindJSON[request.VerifyEmailRequest](c)

	if err != nil {
		helper.SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := validation.Validator.Struct(params); err != nil {
		helper.SendValidationError(c, err)
		return
	}

	userUUID, err := uuid.Parse(params.UserID)

	if err != nil {
		helper.SendBadRequestError(c, "user_id", "Invalid user id")
		return
	}

	user, err := a.svc.VerifyEmail(ctx, userUUID, params.OTP)
	a.record("verify_email", err)

	if err != nil {
		helper.SendDomainError(c, err)
		return
	}

	helper.SendSuccess(c, http.StatusOK, response.NewUserResponse(user), "Email verified successfully")
}

func (a *AuthHandler) ResendVerification(c *gin.Context) {
	ctx := c.Request.Context()

	params, err := bindJSON[request.ResendVerificationRequest](c)

	if err != nil {
		helper.SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := validation.Validator.Struct(params); err != nil {
		helper.SendValidationError(c, err)
		return
	}

	userUUID, err := uuid.Parse(params.UserID)

	if err != nil {
		helper.SendBadRequestError(c, "user_id", "Invalid user id")
		return
	}

	err = a.svc.ResendVerification(ctx, userUUID)
	a.record("resend_verification", err)

	if err != nil {
		helper.SendDomainError(c, err)
		return
	}

	helper.SendSuccess(c, http.StatusOK, nil, "Verification code sent successfully")
}

func (a *AuthHandler) ForgotPassword(c *gin.Context) {
	ctx := c.Request.Context()

	params, err := bindJSON[request.ForgotPasswordRequest](c)

	if err != nil {
		helper.SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := validation.Validator.Struct(params); err != nil {
		helper.SendValidationError(c, err)
		return
	}

	err = a.svc.ForgotPassword(ctx, params.Email)
	a.record("forgot_password", err)

	if err != nil {
		helper.SendDomainError(c, err)
		return
	}

	// Same answer whether or not the account exists.
	helper.SendSuccess(c, http.StatusOK, nil,
		"If an account with that email exists, a password reset link has been sent.")
}

func (a *AuthHandler) ValidateResetToken(c *gin.Context) {
	ctx := c.Request.Context()

	token := c.Query("token")

	if token == "" {
		helper.SendBadRequestError(c, "token", "Token is required")
		return
	}

	info, err := a.svc.ValidateResetToken(ctx, token)

	if err != nil {
		helper.SendDomainError(c, err)
		return
	}

	helper.SendSuccess(c, http.StatusOK, info)
}

func (a *AuthHandler) ResetPassword(c *gin.Context) {
	ctx := c.Request.Context()

	params, err := bindJSON[request.ResetPasswordRequest](c)

	if err != nil {
		helper.SendBadRequestError(c, "request", "Invalid request parameters")
		return
	}

	if err := validation.Validator.Struct(params); err != nil {
		helper.SendValidationError(c, err)
		return
	}

	err = a.svc.ResetPassword(ctx, params.Token, params.Password)
	a.record("reset_password", err)

	if err != nil {
		helper.SendDomainError(c, err)
		return
	}

	helper.SendSuccess(c, http.StatusOK, nil, "Password reset successfully")
}
