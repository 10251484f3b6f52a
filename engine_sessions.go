package authcore

import (
	"context"
	"errors"
	"time"
)

// ListSessions returns the user's live sessions, newest first, flagging the
// one matching currentSessionID.
func (e *Engine) ListSessions(ctx context.Context, userID, currentSessionID string) ([]SessionInfo, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	sessions, err := e.sessions.ListForUser(sctx, userID, time.Now())
	if err != nil {
		return nil, storeErr(err)
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, SessionInfo{
			ID:        s.ID,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
			IsCurrent: s.ID == currentSessionID,
		})
	}
	return infos, nil
}

// CurrentSession describes the session behind sessionID.
func (e *Engine) CurrentSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	sess, err := e.sessions.Get(sctx, sessionID, time.Now())
	if err != nil {
		return nil, storeErr(err)
	}

	return &SessionInfo{
		ID:        sess.ID,
		UserAgent: sess.UserAgent,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
		IsCurrent: true,
	}, nil
}

// DeleteSessionByID removes one of the user's own sessions. A session owned
// by someone else is reported as missing, never as forbidden, so session
// IDs cannot be probed across accounts.
func (e *Engine) DeleteSessionByID(ctx context.Context, userID, sessionID string) error {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	sess, err := e.sessions.Get(sctx, sessionID, time.Now())
	if err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrSessionExpired) {
			// Already dead; deleting it is a no-op success.
			return nil
		}
		return err
	}
	if sess.UserID != userID {
		return ErrSessionNotFound
	}

	if err := e.sessions.Delete(sctx, sessionID); err != nil {
		return storeErr(err)
	}

	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditEventSessionDeleted, true, userID, sessionID, nil, nil)
	return nil
}
