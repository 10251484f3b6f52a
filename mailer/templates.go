package mailer

import "fmt"

// VerifyEmailMessage builds the account-confirmation email pointing at the
// client's confirm-account page.
func VerifyEmailMessage(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Confirm your account",
		Tag:     "verify-email",
		BodyHTML: fmt.Sprintf(
			`<p>Welcome! Please confirm your email address by clicking the link below.</p>`+
				`<p><a href=%q>Confirm my account</a></p>`+
				`<p>If you did not create an account, you can safely ignore this email.</p>`,
			link),
	}
}

// PasswordResetMessage builds the password-reset email pointing at the
// client's reset page. The link is single-use and expires.
func PasswordResetMessage(to, link string) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		Tag:     "password-reset",
		BodyHTML: fmt.Sprintf(
			`<p>We received a request to reset the password for your account.</p>`+
				`<p><a href=%q>Reset my password</a></p>`+
				`<p>This link can be used once and expires shortly. If you did not `+
				`request a reset, no action is needed.</p>`,
			link),
	}
}
