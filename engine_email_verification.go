package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// VerifyEmail consumes an email verification code and marks the owning
// account verified. The second consumption of the same code fails with
// ErrCodeInvalid.
func (e *Engine) VerifyEmail(ctx context.Context, code string) (*UserView, error) {
	now := time.Now()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	record, err := e.codes.Consume(sctx, code, verificationEmail, now)
	if err != nil {
		err = storeErr(err)
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerifyFailure, false, "", "", err, nil)
		return nil, err
	}

	if err := e.users.MarkEmailVerified(sctx, record.UserID, now); err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrNotFound) {
			// Code outlived its user; the record set is inconsistent
			// but the caller only presented a stale link.
			err = fmt.Errorf("%w: account no longer exists", ErrValidation)
		}
		e.metricInc(MetricEmailVerificationFailure)
		e.emitAudit(ctx, auditEventEmailVerifyFailure, false, record.UserID, "", err, nil)
		return nil, err
	}

	user, err := e.users.GetByID(sctx, record.UserID)
	if err != nil {
		return nil, storeErr(err)
	}

	e.metricInc(MetricEmailVerified)
	e.emitAudit(ctx, auditEventEmailVerified, true, user.ID, "", nil, nil)

	return user.view(), nil
}
