package authcore

import (
	"context"
	"encoding/base32"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/silvermint/authcore/mailer"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

// testEngineConfig keeps the default policy but swaps in test secrets and
// cheap argon2 parameters so the suite stays fast.
func testEngineConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessSecret = []byte("access-secret-for-tests-0123456789")
	cfg.JWT.RefreshSecret = []byte("refresh-secret-for-tests-0123456789")
	cfg.JWT.Issuer = "authcore-test"
	cfg.Password = PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	cfg.ClientBaseURL = "https://app.example.com"
	return cfg
}

func newTestEngine(t *testing.T) (*Engine, *mailer.Recorder) {
	t.Helper()

	rec := mailer.NewRecorder()
	engine, err := New().
		WithConfig(testEngineConfig()).
		WithRedis(newTestRedis(t)).
		WithMailer(rec).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, rec
}

func registerUser(t *testing.T, e *Engine, email string) *UserView {
	t.Helper()
	view, err := e.Register(context.Background(), RegisterInput{
		Name:     "Test User",
		Email:    email,
		Password: "hunter2hunter2",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return view
}

func loginUser(t *testing.T, e *Engine, email, userAgent string) *LoginResult {
	t.Helper()
	result, err := e.Login(context.Background(), email, "hunter2hunter2", userAgent)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.MFARequired {
		t.Fatal("unexpected MFA challenge during login helper")
	}
	return result
}

var hrefPattern = regexp.MustCompile(`href="([^"]+)"`)

// codeFromEmail pulls the single-use code out of the link embedded in the
// last recorded message.
func codeFromEmail(t *testing.T, rec *mailer.Recorder) string {
	t.Helper()

	msgs := rec.Messages()
	if len(msgs) == 0 {
		t.Fatal("no email recorded")
	}
	match := hrefPattern.FindStringSubmatch(msgs[len(msgs)-1].BodyHTML)
	if match == nil {
		t.Fatalf("no link in email body: %q", msgs[len(msgs)-1].BodyHTML)
	}
	link, err := url.Parse(match[1])
	if err != nil {
		t.Fatalf("invalid link %q: %v", match[1], err)
	}
	code := link.Query().Get("code")
	if code == "" {
		t.Fatalf("no code parameter in link %q", match[1])
	}
	return code
}

// totpCodeFor mints the current TOTP code for a base32 secret, mirroring
// what an authenticator app would display.
func totpCodeFor(t *testing.T, secretBase32 string, now time.Time) string {
	t.Helper()

	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	secret, err := enc.DecodeString(secretBase32)
	if err != nil {
		t.Fatalf("invalid secret: %v", err)
	}
	code, err := hotpCode(secret, now.Unix()/30, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotpCode failed: %v", err)
	}
	return code
}

// enrollMFA walks a user through the full TOTP enrollment.
func enrollMFA(t *testing.T, e *Engine, userID string) string {
	t.Helper()
	ctx := context.Background()

	setup, err := e.GenerateMfaSetup(ctx, userID)
	if err != nil {
		t.Fatalf("GenerateMfaSetup failed: %v", err)
	}
	if setup.AlreadyEnabled {
		t.Fatal("expected fresh enrollment")
	}

	status, err := e.VerifyMfaSetup(ctx, userID, totpCodeFor(t, setup.Secret, time.Now()))
	if err != nil {
		t.Fatalf("VerifyMfaSetup failed: %v", err)
	}
	if !status.Enabled {
		t.Fatal("expected MFA enabled after enrollment")
	}
	return setup.Secret
}
