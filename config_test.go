package authcore

import (
	"testing"
	"time"
)

func TestValidateAcceptsTestConfig(t *testing.T) {
	if err := testEngineConfig().Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secrets", func(c *Config) { c.JWT.AccessSecret = nil }},
		{"equal secrets", func(c *Config) { c.JWT.RefreshSecret = c.JWT.AccessSecret }},
		{"zero access ttl", func(c *Config) { c.JWT.AccessTTL = 0 }},
		{"access ttl above refresh", func(c *Config) { c.JWT.AccessTTL = c.JWT.RefreshTTL + time.Hour }},
		{"zero session ttl", func(c *Config) { c.Session.TTL = 0 }},
		{"threshold above ttl", func(c *Config) { c.Session.RotationThreshold = c.Session.TTL * 2 }},
		{"zero code ttl", func(c *Config) { c.Verification.EmailVerificationTTL = 0 }},
		{"limit without window", func(c *Config) { c.Verification.ResetRateWindow = 0 }},
		{"too few digits", func(c *Config) { c.MFA.Digits = 4 }},
		{"zero period", func(c *Config) { c.MFA.Period = 0 }},
		{"negative skew", func(c *Config) { c.MFA.Skew = -1 }},
		{"bad algorithm", func(c *Config) { c.MFA.Algorithm = "MD5" }},
		{"zero store timeout", func(c *Config) { c.Timeouts.Store = 0 }},
		{"missing cookie name", func(c *Config) { c.Cookies.AccessName = "" }},
		{"equal cookie names", func(c *Config) { c.Cookies.RefreshName = c.Cookies.AccessName }},
		{"missing refresh path", func(c *Config) { c.Cookies.RefreshPath = "" }},
	}

	for _, tc := range cases {
		cfg := testEngineConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestCloneConfigDetachesSecrets(t *testing.T) {
	cfg := testEngineConfig()
	clone := cloneConfig(cfg)

	clone.JWT.AccessSecret[0] ^= 0xff
	if cfg.JWT.AccessSecret[0] == clone.JWT.AccessSecret[0] {
		t.Fatal("expected secret bytes to be copied")
	}
}
