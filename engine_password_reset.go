package authcore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/silvermint/authcore/mailer"
)

// ForgotPassword issues a password reset code for the account and emails
// the reset link. The link is delivered over the email channel only — it is
// never part of the success result. A mail dispatch failure surfaces as
// ErrDownstream because without the email the flow achieved nothing.
func (e *Engine) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResult, error) {
	now := time.Now()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	user, err := e.users.GetByEmail(sctx, email)
	if err != nil {
		err = storeErr(err)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, "", "", err, func() map[string]string {
			return map[string]string{"stage": "lookup"}
		})
		return nil, err
	}

	code, expiresAt, err := e.codes.Issue(sctx, user.ID, verificationReset, now)
	if err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrRateLimited) {
			e.metricInc(MetricPasswordResetRateLimited)
			e.emitAudit(ctx, auditEventRateLimitTriggered, false, user.ID, "", err, func() map[string]string {
				return map[string]string{"scope": "password_reset"}
			})
		} else {
			e.emitAudit(ctx, auditEventPasswordResetFailure, false, user.ID, "", err, func() map[string]string {
				return map[string]string{"stage": "issue_code"}
			})
		}
		return nil, err
	}

	mctx, mcancel := e.mailCtx(ctx)
	defer mcancel()
	msg := mailer.PasswordResetMessage(user.Email, e.resetPasswordLink(code, expiresAt))
	emailID, err := e.mail.Send(mctx, msg)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, user.ID, "", ErrDownstream, func() map[string]string {
			return map[string]string{"stage": "email_dispatch"}
		})
		return nil, fmt.Errorf("%w: %v", ErrDownstream, err)
	}

	e.metricInc(MetricPasswordResetRequested)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, user.ID, "", nil, nil)

	return &ForgotPasswordResult{EmailID: emailID}, nil
}

// ResetPassword consumes a reset code, replaces the password digest, and
// invalidates every session of the account. Success is only reported once
// all three steps completed; a failed invalidation after the digest update
// surfaces as ErrDownstream rather than a silent partial success.
func (e *Engine) ResetPassword(ctx context.Context, code, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	now := time.Now()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	record, err := e.codes.Consume(sctx, code, verificationReset, now)
	if err != nil {
		err = storeErr(err)
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, "", "", err, func() map[string]string {
			return map[string]string{"stage": "consume_code"}
		})
		return err
	}

	digest, err := e.hasher.Hash(newPassword)
	if err != nil {
		e.metricInc(MetricPasswordResetFailure)
		return fmt.Errorf("%w: %v", ErrDownstream, err)
	}

	if err := e.users.UpdatePasswordDigest(sctx, record.UserID, digest, now); err != nil {
		err = storeErr(err)
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, record.UserID, "", err, func() map[string]string {
			return map[string]string{"stage": "update_digest"}
		})
		return err
	}

	if err := e.sessions.DeleteAllForUser(sctx, record.UserID); err != nil {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetFailure, false, record.UserID, "", ErrDownstream, func() map[string]string {
			return map[string]string{"stage": "session_invalidation"}
		})
		return fmt.Errorf("%w: session invalidation failed: %v", ErrDownstream, err)
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, record.UserID, "", nil, nil)

	return nil
}

func (e *Engine) resetPasswordLink(code string, expiresAt time.Time) string {
	v := url.Values{}
	v.Set("code", code)
	v.Set("exp", strconv.FormatInt(expiresAt.Unix(), 10))
	return strings.TrimSuffix(e.config.ClientBaseURL, "/") + "/reset-password?" + v.Encode()
}
