package authcore

import (
	"context"
	"errors"
	"time"
)

// Login checks credentials and, for accounts without MFA, creates a session
// and returns both tokens. Accounts with MFA enabled get MFARequired back
// with no session and no tokens; the client must follow up with
// VerifyMFAForLogin. Unknown email and wrong password are indistinguishable
// by design.
func (e *Engine) Login(ctx context.Context, email, plainPassword, userAgent string) (*LoginResult, error) {
	now := time.Now()

	user, err := e.authenticate(ctx, email, plainPassword)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", err, func() map[string]string {
			return map[string]string{"email": normalizeEmail(email)}
		})
		return nil, err
	}

	if user.MFAEnabled {
		e.metricInc(MetricLoginMFARequired)
		e.emitAudit(ctx, auditEventLoginMFARequired, true, user.ID, "", nil, nil)
		return &LoginResult{MFARequired: true}, nil
	}

	result, err := e.startSession(ctx, user, userAgent, now)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.ID, "", err, func() map[string]string {
			return map[string]string{"stage": "session_creation"}
		})
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.ID, "", nil, nil)

	return result, nil
}

// VerifyMFAForLogin completes a pending MFA login: it challenges the TOTP
// code against the account's stored secret and, on success, mirrors Login's
// post-authentication path.
func (e *Engine) VerifyMFAForLogin(ctx context.Context, email, totpCode, userAgent string) (*LoginResult, error) {
	now := time.Now()

	sctx, cancel := e.storeCtx(ctx)
	user, err := e.users.GetByEmail(sctx, email)
	cancel()
	if err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrMfaNotEnabled
		}
		e.metricInc(MetricMFALoginFailure)
		e.emitAudit(ctx, auditEventMFALoginFailure, false, "", "", err, nil)
		return nil, err
	}

	if !user.MFAEnabled || user.TOTPSecret == "" {
		e.metricInc(MetricMFALoginFailure)
		e.emitAudit(ctx, auditEventMFALoginFailure, false, user.ID, "", ErrMfaNotEnabled, nil)
		return nil, ErrMfaNotEnabled
	}

	ok, err := e.totp.VerifyCode(user.TOTPSecret, totpCode, now)
	if err != nil || !ok {
		e.metricInc(MetricMFALoginFailure)
		e.emitAudit(ctx, auditEventMFALoginFailure, false, user.ID, "", ErrMfaCodeInvalid, nil)
		return nil, ErrMfaCodeInvalid
	}

	result, err := e.startSession(ctx, user, userAgent, now)
	if err != nil {
		e.metricInc(MetricMFALoginFailure)
		e.emitAudit(ctx, auditEventMFALoginFailure, false, user.ID, "", err, func() map[string]string {
			return map[string]string{"stage": "session_creation"}
		})
		return nil, err
	}

	e.metricInc(MetricMFALoginSuccess)
	e.emitAudit(ctx, auditEventMFALoginSuccess, true, user.ID, "", nil, nil)

	return result, nil
}

// authenticate resolves the email and verifies the password, collapsing
// every failure into ErrInvalidCredentials except downstream outages.
func (e *Engine) authenticate(ctx context.Context, email, plainPassword string) (*User, error) {
	if plainPassword == "" || !looksLikeEmail(email) {
		return nil, ErrInvalidCredentials
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	user, err := e.users.GetByEmail(sctx, email)
	if err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrDownstream) {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(plainPassword, user.PasswordDigest)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
