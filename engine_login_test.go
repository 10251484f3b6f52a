package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginCreatesSession(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	registerUser(t, engine, "alice@example.com")
	result := loginUser(t, engine, "alice@example.com", "firefox")

	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if result.User == nil || result.User.Email != "alice@example.com" {
		t.Fatalf("unexpected user view: %+v", result.User)
	}

	identity, err := engine.ValidateAccess(ctx, result.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if identity.UserID != result.User.ID {
		t.Fatalf("identity user %q, want %q", identity.UserID, result.User.ID)
	}

	sess, err := engine.CurrentSession(ctx, identity.SessionID)
	if err != nil {
		t.Fatalf("CurrentSession failed: %v", err)
	}
	if sess.UserAgent != "firefox" || !sess.IsCurrent {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestLoginRejectionsAreIndistinguishable(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	registerUser(t, engine, "alice@example.com")

	_, unknownErr := engine.Login(ctx, "nobody@example.com", "hunter2hunter2", "ua")
	_, wrongPwErr := engine.Login(ctx, "alice@example.com", "not-the-password", "ua")

	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongPwErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", unknownErr, wrongPwErr)
	}
	if unknownErr.Error() != wrongPwErr.Error() {
		t.Fatalf("messages differ: %q vs %q", unknownErr, wrongPwErr)
	}
}

func TestLoginEmptyPasswordRejected(t *testing.T) {
	engine, _ := newTestEngine(t)

	registerUser(t, engine, "alice@example.com")
	if _, err := engine.Login(context.Background(), "alice@example.com", "", "ua"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginWithMFADefersToChallenge(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	view := registerUser(t, engine, "alice@example.com")
	secret := enrollMFA(t, engine, view.ID)

	result, err := engine.Login(ctx, "alice@example.com", "hunter2hunter2", "ua")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !result.MFARequired {
		t.Fatal("expected MFARequired")
	}
	if result.AccessToken != "" || result.RefreshToken != "" {
		t.Fatal("expected no tokens before the MFA challenge")
	}

	// No session exists yet.
	sessions, err := engine.ListSessions(ctx, view.ID, "")
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions, got %d", len(sessions))
	}

	completed, err := engine.VerifyMFAForLogin(ctx, "alice@example.com", totpCodeFor(t, secret, time.Now()), "ua")
	if err != nil {
		t.Fatalf("VerifyMFAForLogin failed: %v", err)
	}
	if completed.AccessToken == "" || completed.RefreshToken == "" {
		t.Fatal("expected both tokens after the MFA challenge")
	}
	if _, err := engine.ValidateAccess(ctx, completed.AccessToken); err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
}

func TestVerifyMFAForLoginWrongCode(t *testing.T) {
	engine, _ := newTestEngine(t)

	view := registerUser(t, engine, "alice@example.com")
	enrollMFA(t, engine, view.ID)

	_, err := engine.VerifyMFAForLogin(context.Background(), "alice@example.com", "000000", "ua")
	if !errors.Is(err, ErrMfaCodeInvalid) {
		t.Fatalf("expected ErrMfaCodeInvalid, got %v", err)
	}
}

func TestVerifyMFAForLoginWithoutEnrollment(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	registerUser(t, engine, "alice@example.com")

	if _, err := engine.VerifyMFAForLogin(ctx, "alice@example.com", "123456", "ua"); !errors.Is(err, ErrMfaNotEnabled) {
		t.Fatalf("expected ErrMfaNotEnabled for unenrolled account, got %v", err)
	}
	if _, err := engine.VerifyMFAForLogin(ctx, "nobody@example.com", "123456", "ua"); !errors.Is(err, ErrMfaNotEnabled) {
		t.Fatalf("expected ErrMfaNotEnabled for unknown account, got %v", err)
	}
}
