package authcore

import (
	"context"
	"io"
	"time"

	"github.com/silvermint/authcore/internal/audit"
)

// AuditEvent is one recorded authentication outcome.
type AuditEvent = audit.Event

// AuditSink receives emitted audit events. Implementations must be safe for
// concurrent use; the dispatcher calls them from a single background
// goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events in a channel for in-process consumers.
type ChannelSink = audit.ChannelSink

// NewChannelSink builds a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink builds a sink writing one JSON event per line to w.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

const (
	auditEventRegisterSuccess      = "register_success"
	auditEventRegisterDuplicate    = "register_duplicate"
	auditEventRegisterFailure      = "register_failure"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginMFARequired     = "login_mfa_required"
	auditEventMFALoginSuccess      = "mfa_login_success"
	auditEventMFALoginFailure      = "mfa_login_failure"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshRotated       = "refresh_rotated"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventLogoutSession        = "logout_session"
	auditEventEmailVerified        = "email_verified"
	auditEventEmailVerifyFailure   = "email_verify_failure"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordResetConfirm = "password_reset_confirm"
	auditEventPasswordResetFailure = "password_reset_failure"
	auditEventMFASetupRequested    = "mfa_setup_requested"
	auditEventMFAEnabled           = "mfa_enabled"
	auditEventMFARevoked           = "mfa_revoked"
	auditEventSessionDeleted       = "session_deleted"
	auditEventRateLimitTriggered   = "rate_limit_triggered"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Error = Code(err)
	}

	e.audit.Emit(ctx, event)
}
