package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/silvermint/authcore/token"
)

// Refresh exchanges a refresh token for a new access token. When the
// session has entered its rotation window the session is extended and a new
// refresh token is returned as well; otherwise the presented refresh token
// stays valid and RefreshToken is empty.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	now := time.Now()

	claims, err := e.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			err = ErrTokenExpired
		} else {
			err = ErrTokenInvalid
		}
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", err, nil)
		return nil, err
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	sess, rotated, err := e.sessions.RotateOnRefresh(
		sctx,
		claims.SessionID,
		now,
		e.config.Session.RotationThreshold,
		e.config.Session.TTL,
	)
	if err != nil {
		err = storeErr(err)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", claims.SessionID, err, nil)
		return nil, err
	}

	access, err := e.tokens.SignAccess(sess.UserID, sess.ID, now)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return nil, fmt.Errorf("%w: %v", ErrDownstream, err)
	}

	result := &RefreshResult{AccessToken: access}
	if rotated {
		refresh, err := e.tokens.SignRefresh(sess.ID, now)
		if err != nil {
			e.metricInc(MetricRefreshFailure)
			return nil, fmt.Errorf("%w: %v", ErrDownstream, err)
		}
		result.RefreshToken = refresh
		result.Rotated = true
		e.metricInc(MetricRefreshRotated)
		e.emitAudit(ctx, auditEventRefreshRotated, true, sess.UserID, sess.ID, nil, nil)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, sess.UserID, sess.ID, nil, nil)

	return result, nil
}

// Logout deletes the current session only; other sessions for the same user
// stay live. Logging out an already-deleted session is not an error.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	if err := e.sessions.Delete(sctx, sessionID); err != nil {
		err = storeErr(err)
		e.emitAudit(ctx, auditEventLogoutSession, false, "", sessionID, err, nil)
		return err
	}

	e.metricInc(MetricLogout)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventLogoutSession, true, "", sessionID, nil, nil)
	return nil
}
