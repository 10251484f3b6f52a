package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const phcAlgorithm = "argon2id"

// Hasher is the opaque digest service contract used by the orchestrator:
// hash a plaintext into a self-describing digest, or verify a plaintext
// against one. Implementations must be safe for concurrent use.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
}

// Config carries the argon2id cost parameters.
type Config struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig returns interactive-login argon2id parameters.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        1,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 is the default [Hasher], producing PHC-formatted argon2id digests.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg and returns a ready hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	switch {
	case cfg.Memory < 8*1024:
		return nil, errors.New("password: memory must be >= 8192 KiB")
	case cfg.Time < 1:
		return nil, errors.New("password: time must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("password: parallelism must be >= 1")
	case cfg.SaltLength < 16:
		return nil, errors.New("password: salt length must be >= 16")
	case cfg.KeyLength < 16:
		return nil, errors.New("password: key length must be >= 16")
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a new salted digest from plain.
func (a *Argon2) Hash(plain string) (string, error) {
	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(plain), salt, a.config.Time, a.config.Memory,
		a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm, argon2.Version,
		a.config.Memory, a.config.Time, a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether plain matches the given PHC digest. The digest's
// own embedded parameters are used, so older digests verify after a config
// change.
func (a *Argon2) Verify(plain, digest string) (bool, error) {
	memory, timeCost, parallelism, salt, key, err := parsePHC(digest)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(plain), salt, timeCost, memory,
		parallelism, uint32(len(key)))

	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

func parsePHC(digest string) (memory, timeCost uint32, parallelism uint8, salt, key []byte, err error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" {
		return 0, 0, 0, nil, nil, errors.New("password: invalid PHC format")
	}
	if parts[1] != phcAlgorithm {
		return 0, 0, 0, nil, nil, errors.New("password: unsupported algorithm")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, errors.New("password: unsupported argon2 version")
	}

	var p uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &p); err != nil {
		return 0, 0, 0, nil, nil, errors.New("password: invalid parameters")
	}
	if memory == 0 || timeCost == 0 || p == 0 || p > 255 {
		return 0, 0, 0, nil, nil, errors.New("password: invalid parameters")
	}
	parallelism = uint8(p)

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(salt) == 0 {
		return 0, 0, 0, nil, nil, errors.New("password: invalid salt encoding")
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(key) == 0 {
		return 0, 0, 0, nil, nil, errors.New("password: invalid key encoding")
	}

	return memory, timeCost, parallelism, salt, key, nil
}
