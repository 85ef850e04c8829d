package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	Admin   UserRole = "admin"
	Manager UserRole = "manager"
	Member  UserRole = "member"
)

type Preferences struct {
	Notifications bool   `json:"notifications"`
	Theme         string `json:"theme"`
}

func DefaultPreferences() Preferences {
	return Preferences{Notifications: true, Theme: "light"}
}

type Profile struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
}

// User is the identity record. The password hash only travels inside the
// persistence boundary; Sanitized strips it before anything is handed outward.
type User struct {
	ID           int
	UUID         uuid.UUID
	Username     string `validate:"required,min=2,max=100"`
	Email        string `validate:"required,email,max=255"`
	PasswordHash string `validate:"required"`
	Role         UserRole
	Active       bool
	// EmailVerified is nil when verification was never requested for this
	// account, otherwise it tracks the OTP flow.
	EmailVerified *bool
	Workspaces    []uuid.UUID
	Profile       Profile
	Preferences   Preferences
	LastActiveAt  time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

// VerificationPending reports whether the account still has to confirm its
// email address before it may log in.
func (u *User) VerificationPending() bool {
	return u.EmailVerified != nil && !*u.EmailVerified
}

// PrimaryWorkspace returns the workspace created during registration.
func (u *User) PrimaryWorkspace() (uuid.UUID, bool) {
	if len(u.Workspaces) == 0 {
		return uuid.Nil, false
	}
	return u.Workspaces[0], true
}

// Sanitized returns a copy safe to serialize outward: the password hash is
// dropped.
func (u *User) Sanitized() User {
	out := *u
	out.PasswordHash = ""
	return out
}
