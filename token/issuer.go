package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalid is returned for malformed tokens, bad signatures, and
	// audience or issuer mismatches.
	ErrInvalid = errors.New("invalid token")
	// ErrExpired is returned when an otherwise valid token has elapsed its TTL.
	ErrExpired = errors.New("token expired")
)

// Config holds the signing material and TTLs for both token families.
// Access and refresh tokens use distinct secrets and distinct audiences so
// one can never verify where the other is expected.
type Config struct {
	AccessSecret    []byte
	RefreshSecret   []byte
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	Issuer          string
	AccessAudience  string
	RefreshAudience string
}

// AccessClaims binds a short-lived token to a user and the session it was
// minted under.
type AccessClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// RefreshClaims binds a long-lived token to a session only.
type RefreshClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies access and refresh tokens. It is stateless and
// safe for concurrent use; construct one at initialization and pass it by
// reference to every flow that needs it.
type Issuer struct {
	config Config
}

// NewIssuer validates cfg and returns a ready Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token: both access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("token: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: invalid TTL configuration")
	}
	if cfg.AccessAudience == "" || cfg.RefreshAudience == "" {
		return nil, errors.New("token: both audiences are required")
	}
	if cfg.AccessAudience == cfg.RefreshAudience {
		return nil, errors.New("token: access and refresh audiences must differ")
	}
	return &Issuer{config: cfg}, nil
}

// SignAccess mints an access token for the given user and session.
func (i *Issuer) SignAccess(userID, sessionID string, now time.Time) (string, error) {
	claims := AccessClaims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: i.registered(now, i.config.AccessTTL,
			i.config.AccessAudience),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.config.AccessSecret)
}

// SignRefresh mints a refresh token bound to sessionID alone.
func (i *Issuer) SignRefresh(sessionID string, now time.Time) (string, error) {
	claims := RefreshClaims{
		SessionID: sessionID,
		RegisteredClaims: i.registered(now, i.config.RefreshTTL,
			i.config.RefreshAudience),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.config.RefreshSecret)
}

// VerifyAccess parses and validates an access token.
func (i *Issuer) VerifyAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.verify(tokenStr, claims, i.config.AccessSecret, i.config.AccessAudience); err != nil {
		return nil, err
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

// VerifyRefresh parses and validates a refresh token.
func (i *Issuer) VerifyRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.verify(tokenStr, claims, i.config.RefreshSecret, i.config.RefreshAudience); err != nil {
		return nil, err
	}
	if claims.SessionID == "" {
		return nil, ErrInvalid
	}
	return claims, nil
}

func (i *Issuer) registered(now time.Time, ttl time.Duration, audience string) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Audience:  jwt.ClaimStrings{audience},
	}
	if i.config.Issuer != "" {
		rc.Issuer = i.config.Issuer
	}
	return rc
}

func (i *Issuer) verify(tokenStr string, claims jwt.Claims, secret []byte, audience string) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrInvalid
	}
	if !parsed.Valid {
		return ErrInvalid
	}
	return nil
}
