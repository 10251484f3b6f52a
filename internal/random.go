package internal

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/google/uuid"
)

const codeTokenBytes = 32

// NewID returns an opaque unique record identifier. Users, sessions, and
// verification codes all use this format.
func NewID() string {
	return uuid.NewString()
}

// NewCodeToken returns a cryptographically random URL-safe token used as a
// verification code value.
func NewCodeToken() (string, error) {
	raw := make([]byte, codeTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
