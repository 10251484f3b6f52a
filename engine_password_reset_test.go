package authcore

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestForgotAndResetPassword(t *testing.T) {
	engine, rec := newTestEngine(t)
	ctx := context.Background()

	registerUser(t, engine, "alice@example.com")
	login := loginUser(t, engine, "alice@example.com", "ua")

	result, err := engine.ForgotPassword(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	if result.EmailID == "" {
		t.Fatal("expected mail provider message ID")
	}

	msgs := rec.Messages()
	last := msgs[len(msgs)-1]
	if last.Tag != "password-reset" {
		t.Fatalf("unexpected tag %q", last.Tag)
	}
	if !strings.Contains(last.BodyHTML, "https://app.example.com/reset-password?") {
		t.Fatalf("unexpected reset link in body: %q", last.BodyHTML)
	}

	code := codeFromEmail(t, rec)
	if err := engine.ResetPassword(ctx, code, "new-password-1"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	// Every pre-reset session is invalidated.
	if _, err := engine.Refresh(ctx, login.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected old session dead, got %v", err)
	}

	// Old password no longer works; the new one does.
	if _, err := engine.Login(ctx, "alice@example.com", "hunter2hunter2", "ua"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, err := engine.Login(ctx, "alice@example.com", "new-password-1", "ua"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}

	// The reset code is single-use.
	if err := engine.ResetPassword(ctx, code, "another-password-1"); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid on reuse, got %v", err)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	engine, _ := newTestEngine(t)

	if _, err := engine.ForgotPassword(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestForgotPasswordRateLimited(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	registerUser(t, engine, "alice@example.com")

	for i := 0; i < 2; i++ {
		if _, err := engine.ForgotPassword(ctx, "alice@example.com"); err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
	}
	if _, err := engine.ForgotPassword(ctx, "alice@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on the third request, got %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricPasswordResetRateLimited] != 1 {
		t.Fatalf("expected one throttled request counted, got %d", snap.Counters[MetricPasswordResetRateLimited])
	}
}

func TestForgotPasswordMailFailure(t *testing.T) {
	engine, rec := newTestEngine(t)
	ctx := context.Background()

	registerUser(t, engine, "alice@example.com")

	rec.FailNext = errors.New("provider outage")
	if _, err := engine.ForgotPassword(ctx, "alice@example.com"); !errors.Is(err, ErrDownstream) {
		t.Fatalf("expected ErrDownstream, got %v", err)
	}
}

func TestResetPasswordRejectsShortPassword(t *testing.T) {
	engine, _ := newTestEngine(t)

	if err := engine.ResetPassword(context.Background(), "whatever", "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestResetPasswordUnknownCode(t *testing.T) {
	engine, _ := newTestEngine(t)

	if err := engine.ResetPassword(context.Background(), "bogus", "new-password-1"); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}
}

func TestVerificationCodeCannotCrossFlows(t *testing.T) {
	engine, rec := newTestEngine(t)
	ctx := context.Background()

	// The registration email carries an email verification code; presenting
	// it to the reset flow must fail and must not burn it.
	registerUser(t, engine, "alice@example.com")
	code := codeFromEmail(t, rec)

	if err := engine.ResetPassword(ctx, code, "new-password-1"); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid for cross-flow code, got %v", err)
	}
	if _, err := engine.VerifyEmail(ctx, code); err != nil {
		t.Fatalf("code should survive the mismatched attempt: %v", err)
	}
}
