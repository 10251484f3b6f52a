package authcore

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation covers malformed or missing input caught before any
	// store access.
	ErrValidation = errors.New("invalid input")
	// ErrEmailExists is returned when registering an email that already
	// has an account.
	ErrEmailExists = errors.New("email already registered")
	// ErrInvalidCredentials is the single login failure for both unknown
	// email and wrong password. Callers must not be able to tell the two
	// apart.
	ErrInvalidCredentials = errors.New("invalid email or password provided")
	// ErrTokenInvalid is returned for tokens with a bad signature, wrong
	// audience, or unparseable claims.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrSessionNotFound is returned when the referenced session does not
	// exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when the referenced session has passed
	// its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrCodeInvalid is returned when a verification code is unknown,
	// expired, of the wrong type, or already consumed.
	ErrCodeInvalid = errors.New("verification code not found or expired")
	// ErrRateLimited is returned when code issuance exceeds the trailing
	// window limit.
	ErrRateLimited = errors.New("too many attempts, try again later")
	// ErrMfaAlreadyEnabled is returned when enrollment is attempted on an
	// account with MFA already active.
	ErrMfaAlreadyEnabled = errors.New("mfa already enabled")
	// ErrMfaNotEnabled is returned when an MFA challenge targets an
	// account without MFA configured.
	ErrMfaNotEnabled = errors.New("mfa not enabled")
	// ErrMfaCodeInvalid is returned when a TOTP code does not verify.
	ErrMfaCodeInvalid = errors.New("invalid mfa code")
	// ErrNotFound is the generic missing-entity failure.
	ErrNotFound = errors.New("not found")
	// ErrDownstream wraps store, email, and timeout failures. The wrapped
	// detail is for server-side logs only.
	ErrDownstream = errors.New("downstream failure")
)

// Code returns the stable machine-readable code for err, suitable for
// programmatic handling by API clients. Unrecognized errors map to
// INTERNAL_ERROR.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrEmailExists):
		return "AUTH_EMAIL_ALREADY_EXISTS"
	case errors.Is(err, ErrInvalidCredentials):
		return "AUTH_INVALID_CREDENTIALS"
	case errors.Is(err, ErrTokenInvalid):
		return "AUTH_INVALID_TOKEN"
	case errors.Is(err, ErrTokenExpired):
		return "AUTH_TOKEN_EXPIRED"
	case errors.Is(err, ErrSessionNotFound):
		return "AUTH_SESSION_NOT_FOUND"
	case errors.Is(err, ErrSessionExpired):
		return "AUTH_SESSION_EXPIRED"
	case errors.Is(err, ErrCodeInvalid):
		return "AUTH_CODE_INVALID"
	case errors.Is(err, ErrRateLimited):
		return "AUTH_TOO_MANY_ATTEMPTS"
	case errors.Is(err, ErrMfaAlreadyEnabled):
		return "AUTH_MFA_ALREADY_ENABLED"
	case errors.Is(err, ErrMfaNotEnabled):
		return "AUTH_MFA_NOT_ENABLED"
	case errors.Is(err, ErrMfaCodeInvalid):
		return "AUTH_MFA_CODE_INVALID"
	case errors.Is(err, ErrNotFound):
		return "AUTH_NOT_FOUND"
	case errors.Is(err, ErrDownstream):
		return "DOWNSTREAM_FAILURE"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatus returns the transport status for err. Validation, duplicate,
// and credential failures are client errors; token and session failures are
// unauthorized; downstream failures are bad-gateway. Unrecognized errors map
// to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrEmailExists),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrCodeInvalid),
		errors.Is(err, ErrMfaAlreadyEnabled),
		errors.Is(err, ErrMfaNotEnabled),
		errors.Is(err, ErrMfaCodeInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrDownstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
