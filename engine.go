package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/silvermint/authcore/internal"
	"github.com/silvermint/authcore/internal/audit"
	"github.com/silvermint/authcore/mailer"
	"github.com/silvermint/authcore/password"
	"github.com/silvermint/authcore/qrcode"
	"github.com/silvermint/authcore/session"
	"github.com/silvermint/authcore/token"
)

// Engine composes the credential store, token issuer, session store,
// verification registry, and MFA manager into the authentication flows. It
// is the only component aware of end-to-end policy ordering. Construct it
// through [Builder] and treat it as immutable.
type Engine struct {
	config   Config
	users    *credentialStore
	sessions *session.Store
	codes    *verificationRegistry
	tokens   *token.Issuer
	hasher   password.Hasher
	totp     *totpManager
	renderer qrcode.Renderer
	mail     mailer.Sender
	audit    *audit.Dispatcher
	metrics  *Metrics
}

// Close drains and stops the audit dispatcher. The Engine must not be used
// afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events the dispatcher discarded under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of every engine counter.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Timeouts.Store)
}

func (e *Engine) mailCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Timeouts.Email)
}

// storeErr normalizes store-layer failures: domain sentinels pass through,
// everything else (connectivity, deadline expiry, script corruption) becomes
// ErrDownstream so infrastructure detail never reaches the boundary.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrEmailExists),
		errors.Is(err, ErrCodeInvalid),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrDownstream),
		errors.Is(err, errSecretAlreadySet):
		return err
	case errors.Is(err, session.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, session.ErrExpired):
		return ErrSessionExpired
	default:
		return fmt.Errorf("%w: %v", ErrDownstream, err)
	}
}

// startSession creates a session for user and signs both tokens, the shared
// tail of Login and VerifyMFAForLogin.
func (e *Engine) startSession(ctx context.Context, user *User, userAgent string, now time.Time) (*LoginResult, error) {
	sess := &session.Session{
		ID:        internal.NewID(),
		UserID:    user.ID,
		UserAgent: userAgent,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(e.config.Session.TTL).Unix(),
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.sessions.Save(sctx, sess, e.config.Session.TTL); err != nil {
		return nil, storeErr(err)
	}

	access, err := e.tokens.SignAccess(user.ID, sess.ID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownstream, err)
	}
	refresh, err := e.tokens.SignRefresh(sess.ID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownstream, err)
	}

	e.metricInc(MetricSessionCreated)

	return &LoginResult{
		User:         user.view(),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// ValidateAccess verifies an access token and confirms that its session is
// still live, returning the identity for the request.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*AccessIdentity, error) {
	claims, err := e.tokens.VerifyAccess(accessToken)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if _, err := e.sessions.Get(sctx, claims.SessionID, time.Now()); err != nil {
		return nil, storeErr(err)
	}

	return &AccessIdentity{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
	}, nil
}
