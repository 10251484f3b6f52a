package authcore

import (
	"net/http"
	"testing"
	"time"
)

func TestBuildAccessCookie(t *testing.T) {
	engine, _ := newTestEngine(t)

	c := engine.BuildAccessCookie("token-value")
	if c.Name != "access_token" || c.Value != "token-value" {
		t.Fatalf("unexpected cookie: %+v", c)
	}
	if c.Path != "/" {
		t.Fatalf("access cookie path %q", c.Path)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode {
		t.Fatalf("missing hardening attributes: %+v", c)
	}
	if want := int(15 * time.Minute / time.Second); c.MaxAge != want {
		t.Fatalf("MaxAge %d, want %d", c.MaxAge, want)
	}
}

func TestBuildRefreshCookieIsPathScoped(t *testing.T) {
	engine, _ := newTestEngine(t)

	c := engine.BuildRefreshCookie("token-value")
	if c.Name != "refresh_token" {
		t.Fatalf("unexpected name %q", c.Name)
	}
	if c.Path != "/auth/refresh" {
		t.Fatalf("refresh cookie path %q", c.Path)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode {
		t.Fatalf("missing hardening attributes: %+v", c)
	}
	if want := int(30 * 24 * time.Hour / time.Second); c.MaxAge != want {
		t.Fatalf("MaxAge %d, want %d", c.MaxAge, want)
	}
}

func TestClearAuthCookies(t *testing.T) {
	engine, _ := newTestEngine(t)

	cleared := engine.ClearAuthCookies()
	if len(cleared) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cleared))
	}
	for _, c := range cleared {
		if c.MaxAge != -1 || c.Value != "" {
			t.Fatalf("cookie %q not cleared: %+v", c.Name, c)
		}
	}
}
