package token

import (
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		AccessSecret:    []byte("access-secret-for-tests-0123456789"),
		RefreshSecret:   []byte("refresh-secret-for-tests-0123456789"),
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      30 * 24 * time.Hour,
		Issuer:          "authcore-test",
		AccessAudience:  "user",
		RefreshAudience: "user:refresh",
	}
}

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := NewIssuer(testConfig())
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	return iss
}

func TestAccessRoundTrip(t *testing.T) {
	iss := newTestIssuer(t)
	now := time.Now()

	tok, err := iss.SignAccess("u1", "s1", now)
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	claims, err := iss.VerifyAccess(tok)
	if err != nil {
		t.Fatalf("VerifyAccess failed: %v", err)
	}
	if claims.UserID != "u1" || claims.SessionID != "s1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRefreshRoundTrip(t *testing.T) {
	iss := newTestIssuer(t)

	tok, err := iss.SignRefresh("s1", time.Now())
	if err != nil {
		t.Fatalf("SignRefresh failed: %v", err)
	}

	claims, err := iss.VerifyRefresh(tok)
	if err != nil {
		t.Fatalf("VerifyRefresh failed: %v", err)
	}
	if claims.SessionID != "s1" {
		t.Fatalf("unexpected session id %q", claims.SessionID)
	}
}

func TestTokenFamiliesDoNotCross(t *testing.T) {
	iss := newTestIssuer(t)
	now := time.Now()

	access, err := iss.SignAccess("u1", "s1", now)
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}
	refresh, err := iss.SignRefresh("s1", now)
	if err != nil {
		t.Fatalf("SignRefresh failed: %v", err)
	}

	if _, err := iss.VerifyRefresh(access); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for access token on refresh path, got %v", err)
	}
	if _, err := iss.VerifyAccess(refresh); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for refresh token on access path, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	iss := newTestIssuer(t)
	past := time.Now().Add(-time.Hour)

	tok, err := iss.SignAccess("u1", "s1", past)
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	if _, err := iss.VerifyAccess(tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	iss := newTestIssuer(t)

	tok, err := iss.SignAccess("u1", "s1", time.Now())
	if err != nil {
		t.Fatalf("SignAccess failed: %v", err)
	}

	tampered := tok[:len(tok)-2] + "xx"
	if _, err := iss.VerifyAccess(tampered); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestNewIssuerRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secrets", func(c *Config) { c.AccessSecret = nil }},
		{"equal secrets", func(c *Config) { c.RefreshSecret = c.AccessSecret }},
		{"zero access ttl", func(c *Config) { c.AccessTTL = 0 }},
		{"missing audience", func(c *Config) { c.AccessAudience = "" }},
		{"equal audiences", func(c *Config) { c.RefreshAudience = c.AccessAudience }},
	}

	for _, tc := range cases {
		cfg := testConfig()
		tc.mutate(&cfg)
		if _, err := NewIssuer(cfg); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
