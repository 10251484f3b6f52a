package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// GenerateMfaSetup starts or resumes TOTP enrollment for the account. An
// already-enabled account gets AlreadyEnabled back with the stored secret
// untouched. A pending secret from an earlier setup call is reused, so
// refreshing the setup page keeps the same QR code.
func (e *Engine) GenerateMfaSetup(ctx context.Context, userID string) (*MfaSetup, error) {
	now := time.Now()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	user, err := e.users.GetByID(sctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	if user.MFAEnabled {
		return &MfaSetup{AlreadyEnabled: true}, nil
	}

	secret := user.TOTPSecret
	if secret == "" {
		secret, err = e.totp.GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDownstream, err)
		}
		if err := e.users.SetTOTPSecret(sctx, userID, secret, now); err != nil {
			if errors.Is(err, errSecretAlreadySet) {
				// Lost a race with a concurrent setup call; use the
				// secret that won.
				user, err = e.users.GetByID(sctx, userID)
				if err != nil {
					return nil, storeErr(err)
				}
				secret = user.TOTPSecret
			} else {
				return nil, storeErr(err)
			}
		}
	}

	uri := e.totp.ProvisionURI(secret, user.Email)
	qr, err := e.renderer.Render(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownstream, err)
	}

	e.metricInc(MetricMFASetupGenerated)
	e.emitAudit(ctx, auditEventMFASetupRequested, true, userID, "", nil, nil)

	return &MfaSetup{Secret: secret, QRCode: qr}, nil
}

// VerifyMfaSetup completes enrollment by checking a TOTP code against the
// pending secret. Calling it on an already-enabled account is idempotent.
func (e *Engine) VerifyMfaSetup(ctx context.Context, userID, code string) (*MfaStatus, error) {
	now := time.Now()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	user, err := e.users.GetByID(sctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	if user.MFAEnabled {
		return &MfaStatus{Enabled: true}, nil
	}
	if user.TOTPSecret == "" {
		return nil, ErrMfaNotEnabled
	}

	ok, err := e.totp.VerifyCode(user.TOTPSecret, code, now)
	if err != nil || !ok {
		e.emitAudit(ctx, auditEventMFALoginFailure, false, userID, "", ErrMfaCodeInvalid, func() map[string]string {
			return map[string]string{"stage": "enrollment"}
		})
		return nil, ErrMfaCodeInvalid
	}

	if err := e.users.EnableMFA(sctx, userID, now); err != nil {
		return nil, storeErr(err)
	}

	e.metricInc(MetricMFAEnabled)
	e.emitAudit(ctx, auditEventMFAEnabled, true, userID, "", nil, nil)

	return &MfaStatus{Enabled: true}, nil
}

// RevokeMfa disables MFA and clears the secret, allowing a fresh enrollment
// later. Revoking an account without MFA is a no-op.
func (e *Engine) RevokeMfa(ctx context.Context, userID string) (*MfaStatus, error) {
	now := time.Now()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	user, err := e.users.GetByID(sctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	if !user.MFAEnabled {
		return &MfaStatus{Enabled: false}, nil
	}

	if err := e.users.DisableMFA(sctx, userID, now); err != nil {
		return nil, storeErr(err)
	}

	e.metricInc(MetricMFARevoked)
	e.emitAudit(ctx, auditEventMFARevoked, true, userID, "", nil, nil)

	return &MfaStatus{Enabled: false}, nil
}
