package password

import (
	"strings"
	"testing"
)

func newTestHasher(t *testing.T) *Argon2 {
	t.Helper()
	h, err := NewArgon2(Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}
	return h
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := newTestHasher(t)

	digest, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$") {
		t.Fatalf("expected PHC digest, got %q", digest)
	}

	ok, err := h.Verify("correct horse battery staple", digest)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong password", digest)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("expected mismatch for wrong password")
	}
}

func TestHashProducesUniqueSalts(t *testing.T) {
	h := newTestHasher(t)

	first, err := h.Hash("same input")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	second, err := h.Hash("same input")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct digests for repeated input")
	}
}

func TestVerifyUsesEmbeddedParameters(t *testing.T) {
	h := newTestHasher(t)
	digest, err := h.Hash("pw")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	// A hasher with different cost parameters must still verify the old
	// digest via its embedded parameters.
	other, err := NewArgon2(Config{
		Memory:      16 * 1024,
		Time:        2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2 failed: %v", err)
	}

	ok, err := other.Verify("pw", digest)
	if err != nil || !ok {
		t.Fatalf("expected cross-config verify to match, ok=%v err=%v", ok, err)
	}
}

func TestVerifyRejectsMalformedDigest(t *testing.T) {
	h := newTestHasher(t)

	for _, digest := range []string{
		"",
		"plainly-not-a-digest",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=0,t=0,p=0$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5",
	} {
		if _, err := h.Verify("pw", digest); err == nil {
			t.Fatalf("expected error for digest %q", digest)
		}
	}
}

func TestNewArgon2RejectsWeakParameters(t *testing.T) {
	weak := []Config{
		{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16},
		{Memory: 8 * 1024, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 16},
		{Memory: 8 * 1024, Time: 1, Parallelism: 0, SaltLength: 16, KeyLength: 16},
		{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16},
		{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
	}
	for i, cfg := range weak {
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
