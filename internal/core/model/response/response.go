package response

import (
	"time"

	"github.com/google/uuid"

	"taskhive/internal/core/domain"
)

type UserResponse struct {
	UUID          string             `json:"uuid"`
	Username      string             `json:"username,omitempty"`
	Email         string             `json:"email,omitempty"`
	Role          string             `json:"role,omitempty"`
	EmailVerified *bool              `json:"email_verified,omitempty"`
	Workspaces    []string           `json:"workspaces,omitempty"`
	Profile       domain.Profile     `json:"profile,omitempty"`
	Preferences   domain.Preferences `json:"preferences"`
	LastActiveAt  time.Time          `json:"last_active_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at,omitempty"`
	UpdatedAt     time.Time          `json:"updated_at,omitempty"`
}

// NewUserResponse builds the outward identity projection. The password hash
// is never part of it.
func NewUserResponse(user domain.User) UserResponse {
	workspaces := make([]string, 0, len(user.Workspaces))
	for _, w := range user.Workspaces {
		workspaces = append(workspaces, w.String())
	}

	return UserResponse{
		UUID:          user.UUID.String(),
		Username:      user.Username,
		Email:         user.Email,
		Role:          string(user.Role),
		EmailVerified: user.EmailVerified,
		Workspaces:    workspaces,
		Profile:       user.Profile,
		Preferences:   user.Preferences,
		LastActiveAt:  user.LastActiveAt,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RegistrationResult struct {
	UserID                    uuid.UUID `json:"user_id"`
	WorkspaceID               uuid.UUID `json:"workspace_id"`
	EmailVerificationRequired bool      `json:"email_verification_required"`
}

type LoginResult struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

type ResetTokenInfo struct {
	Valid     bool   `json:"valid"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ResponseError struct {
	Code    string            `json:"code"`
	Errors  []ValidationError `json:"errors"`
	Details any               `json:"details,omitempty"`
}

type SuccessResponse struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error ResponseError `json:"error"`
}
