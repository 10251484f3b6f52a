package authcore

import (
	"errors"
	"strings"
	"time"
)

// Config carries every tunable of the engine. Populate it before Build and
// treat it as immutable afterwards.
type Config struct {
	JWT          JWTConfig
	Session      SessionConfig
	Verification VerificationConfig
	MFA          MFAConfig
	Password     PasswordConfig
	Cookies      CookieConfig
	Timeouts     TimeoutConfig
	Audit        AuditConfig
	Metrics      MetricsConfig

	// ClientBaseURL is the frontend origin used to build the links embedded
	// in verification and reset emails, e.g. "https://app.example.com".
	ClientBaseURL string
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the signing material for both token families. Secrets are
// mandatory and must differ; audiences default to "user" and "user:refresh".
type JWTConfig struct {
	AccessSecret    []byte
	RefreshSecret   []byte
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	Issuer          string
	AccessAudience  string
	RefreshAudience string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime and the rotation policy. A refresh
// arriving with remaining lifetime at or below RotationThreshold extends the
// session to a full TTL and mints a new refresh token.
type SessionConfig struct {
	RedisPrefix       string
	TTL               time.Duration
	RotationThreshold time.Duration
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig controls single-use code lifetimes and the password
// reset issuance throttle. ResetRateMax issuances are allowed per trailing
// ResetRateWindow; email verification is unthrottled.
type VerificationConfig struct {
	RedisPrefix          string
	EmailVerificationTTL time.Duration
	PasswordResetTTL     time.Duration
	ResetRateWindow      time.Duration
	ResetRateMax         int
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig controls TOTP parameters. Issuer appears in authenticator apps
// as the account label prefix.
type MFAConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Skew      int
	Algorithm string // "SHA1" (default), "SHA256", "SHA512"
}

// PasswordConfig mirrors the argon2id parameters of the digest service.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig controls how the two auth cookies are built. RefreshPath
// scopes the refresh cookie to the refresh endpoint so browsers never send
// the long-lived token anywhere else.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Domain      string
	RefreshPath string
	Secure      bool
}

// TimeoutConfig bounds every downstream call. Deadline expiry surfaces as
// ErrDownstream, never as an unbounded retry.
type TimeoutConfig struct {
	Store time.Duration
	Email time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig enables the in-process counter set.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:       15 * time.Minute,
			RefreshTTL:      30 * 24 * time.Hour,
			AccessAudience:  "user",
			RefreshAudience: "user:refresh",
		},
		Session: SessionConfig{
			RedisPrefix:       "as",
			TTL:               30 * 24 * time.Hour,
			RotationThreshold: 24 * time.Hour,
		},
		Verification: VerificationConfig{
			RedisPrefix:          "av",
			EmailVerificationTTL: 45 * time.Minute,
			PasswordResetTTL:     time.Hour,
			ResetRateWindow:      3 * time.Minute,
			ResetRateMax:         2,
		},
		MFA: MFAConfig{
			Issuer:    "authcore",
			Digits:    6,
			Period:    30,
			Skew:      1,
			Algorithm: "SHA1",
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        1,
			Parallelism: 4,
			SaltLength:  16,
			KeyLength:   32,
		},
		Cookies: CookieConfig{
			AccessName:  "access_token",
			RefreshName: "refresh_token",
			RefreshPath: "/auth/refresh",
			Secure:      true,
		},
		Timeouts: TimeoutConfig{
			Store: 5 * time.Second,
			Email: 10 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate reports the first configuration problem, if any. Build calls it;
// it is exported so bootstraps can fail fast before constructing clients.
func (c Config) Validate() error {
	if len(c.JWT.AccessSecret) == 0 || len(c.JWT.RefreshSecret) == 0 {
		return errors.New("JWT access and refresh secrets are required")
	}
	if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
		return errors.New("JWT access and refresh secrets must differ")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT TTLs must be positive")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("JWT access TTL must be shorter than refresh TTL")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.Session.RotationThreshold <= 0 || c.Session.RotationThreshold >= c.Session.TTL {
		return errors.New("session rotation threshold must be positive and below the TTL")
	}
	if c.Verification.EmailVerificationTTL <= 0 || c.Verification.PasswordResetTTL <= 0 {
		return errors.New("verification code TTLs must be positive")
	}
	if c.Verification.ResetRateMax > 0 && c.Verification.ResetRateWindow <= 0 {
		return errors.New("reset rate window must be positive when a limit is set")
	}
	if c.MFA.Digits < 6 || c.MFA.Digits > 8 {
		return errors.New("MFA digits must be between 6 and 8")
	}
	if c.MFA.Period <= 0 {
		return errors.New("MFA period must be positive")
	}
	if c.MFA.Skew < 0 {
		return errors.New("MFA skew must not be negative")
	}
	switch strings.ToUpper(c.MFA.Algorithm) {
	case "", "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("unsupported MFA algorithm")
	}
	if c.Timeouts.Store <= 0 || c.Timeouts.Email <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.Cookies.AccessName == "" || c.Cookies.RefreshName == "" {
		return errors.New("cookie names are required")
	}
	if c.Cookies.AccessName == c.Cookies.RefreshName {
		return errors.New("access and refresh cookie names must differ")
	}
	if c.Cookies.RefreshPath == "" {
		return errors.New("refresh cookie path is required")
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.JWT.AccessSecret = cloneBytes(c.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(c.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
