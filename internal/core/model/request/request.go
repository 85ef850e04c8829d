package request

type ProfileRequest struct {
	FirstName string `json:"first_name,omitempty" validate:"max=100"`
	LastName  string `json:"last_name,omitempty" validate:"max=100"`
	Avatar    string `json:"avatar,omitempty" validate:"omitempty,url"`
	Timezone  string `json:"timezone,omitempty" validate:"max=64"`
}

type PreferencesRequest struct {
	Notifications *bool  `json:"notifications,omitempty"`
	Theme         string `json:"theme,omitempty" validate:"omitempty,oneof=light dark"`
}

type SignUpRequest struct {
	Username    string              `json:"username,omitempty" validate:"required,min=2,max=100"`
	Email       string              `json:"email,omitempty" validate:"required,email,max=255"`
	Password    string              `json:"password,omitempty" validate:"required,min=6,max=100"`
	Role        string              `json:"role,omitempty" validate:"omitempty,oneof=admin manager member"`
	Profile     ProfileRequest      `json:"profile,omitempty"`
	Preferences *PreferencesRequest `json:"preferences,omitempty"`

	SendWelcomeEmail    bool `json:"send_welcome_email,omitempty"`
	SendOTPVerification bool `json:"send_otp_verification,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email,omitempty" validate:"required,email,max=255"`
	Password string `json:"password,omitempty" validate:"required,min=6,max=100"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty" validate:"required"`
}

type VerifyEmailRequest struct {
	UserID string `json:"user_id,omitempty" validate:"required,uuid"`
	OTP    string `json:"otp,omitempty" validate:"required,len=6,numeric"`
}

type ResendVerificationRequest struct {
	UserID string `json:"user_id,omitempty" validate:"required,uuid"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email,omitempty" validate:"required,email,max=255"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token,omitempty" validate:"required"`
	Password string `json:"password,omitempty" validate:"required,min=6,max=100"`
}
