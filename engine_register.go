package authcore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/silvermint/authcore/internal"
	"github.com/silvermint/authcore/mailer"
)

const minPasswordLength = 8

// Register creates a new account, issues an email verification code, and
// dispatches the confirmation email. The email dispatch is best-effort: the
// account exists either way and verification can be re-requested, so a mail
// provider hiccup does not fail the registration.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*UserView, error) {
	if err := validateRegisterInput(in); err != nil {
		return nil, err
	}

	digest, err := e.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownstream, err)
	}

	now := time.Now()
	user := &User{
		ID:             internal.NewID(),
		Name:           strings.TrimSpace(in.Name),
		Email:          in.Email,
		PasswordDigest: digest,
		CreatedAt:      now.Unix(),
		UpdatedAt:      now.Unix(),
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.users.Create(sctx, user); err != nil {
		err = storeErr(err)
		if errors.Is(err, ErrEmailExists) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", err, func() map[string]string {
				return map[string]string{"email": user.Email}
			})
		} else {
			e.emitAudit(ctx, auditEventRegisterFailure, false, "", "", err, nil)
		}
		return nil, err
	}

	code, _, err := e.codes.Issue(sctx, user.ID, verificationEmail, now)
	if err != nil {
		// The account is already persisted; surface the failure but
		// leave the user able to request a new code later.
		e.emitAudit(ctx, auditEventRegisterFailure, false, user.ID, "", err, func() map[string]string {
			return map[string]string{"stage": "issue_verification_code"}
		})
		return nil, storeErr(err)
	}

	mctx, mcancel := e.mailCtx(ctx)
	defer mcancel()
	msg := mailer.VerifyEmailMessage(user.Email, e.confirmAccountLink(code))
	if _, err := e.mail.Send(mctx, msg); err != nil {
		log.Print("authcore: verification email dispatch failed")
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, user.ID, "", nil, nil)

	return user.view(), nil
}

func validateRegisterInput(in RegisterInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !looksLikeEmail(in.Email) {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(in.Password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	return nil
}

func looksLikeEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

func (e *Engine) confirmAccountLink(code string) string {
	return strings.TrimSuffix(e.config.ClientBaseURL, "/") +
		"/confirm-account?code=" + url.QueryEscape(code)
}
