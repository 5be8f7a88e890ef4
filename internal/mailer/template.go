package mailer

import "fmt"

// FromName is the sender display name attached to every templated
// message; services configure their own via Service.UserEmailText (§3),
// which callers set as Message.FromName before handing a Message to a
// Sink — template.go only renders the body text.

// RegisterBody renders the signup-confirmation email: the Register JWT
// confirms the user controls the email address before the account is
// usable for login.
func RegisterBody(serviceName, confirmURL string) string {
	return fmt.Sprintf(
		"Welcome to %s.\n\nConfirm your email address by opening this link:\n%s\n",
		serviceName, confirmURL,
	)
}

// RegisterConfirmBody renders the acknowledgement sent once a Register
// token has been consumed.
func RegisterConfirmBody(serviceName string) string {
	return fmt.Sprintf("Your email address for %s has been confirmed.\n", serviceName)
}

// ResetPasswordBody renders the password-reset email. No revoke link is
// offered here: a Revoke token only exists once the reset has been
// confirmed (§4.6), so an unrequested reset expires unused instead.
func ResetPasswordBody(serviceName, resetURL string) string {
	return fmt.Sprintf(
		"A password reset was requested for your %s account.\n\nReset your password by opening this link:\n%s\n\nIf you did not request this, ignore this email; the link expires on its own.\n",
		serviceName, resetURL,
	)
}

// ResetPasswordConfirmBody renders the confirmation sent once a reset has
// completed, with a revoke URL so the user can undo an unauthorized reset.
func ResetPasswordConfirmBody(serviceName, revokeURL string) string {
	return fmt.Sprintf(
		"Your password for %s has been reset.\n\nIf this was not you, revoke it here:\n%s\n",
		serviceName, revokeURL,
	)
}

// UpdateEmailBody renders the notification sent to both the old and new
// address when an email changes.
func UpdateEmailBody(serviceName, newEmail, revokeURL string) string {
	return fmt.Sprintf(
		"The email address on your %s account was changed to %s.\n\nIf this was not you, revoke it here:\n%s\n",
		serviceName, newEmail, revokeURL,
	)
}

// UpdatePasswordBody renders the notification sent when a password
// changes outside the reset flow.
func UpdatePasswordBody(serviceName, revokeURL string) string {
	return fmt.Sprintf(
		"Your password for %s was changed.\n\nIf this was not you, revoke it here:\n%s\n",
		serviceName, revokeURL,
	)
}
