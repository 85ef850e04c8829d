package port

import "context"

type EmailKind string

const (
	EmailWelcome           EmailKind = "welcome"
	EmailOTPVerification   EmailKind = "otp_verification"
	EmailPasswordReset     EmailKind = "password_reset"
	EmailPasswordResetDone EmailKind = "password_reset_confirmation"
)

// Notifier delivers templated emails. The core always calls it best-effort:
// delivery failures are logged by the caller, never propagated.
type Notifier interface {
	Send(ctx context.Context, kind EmailKind, recipient string, data map[string]any) error
}
