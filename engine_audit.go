package goMail

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventSignupSuccess     = "signup_success"
	auditEventSignupDuplicate   = "signup_duplicate"
	auditEventSignupFailure     = "signup_failure"
	auditEventSignupRateLimited = "signup_rate_limited"
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventLoginRateLimited  = "login_rate_limited"
	auditEventPasswordRehashed  = "password_rehashed"
	auditEventGateDenied        = "gate_denied"
	auditEventMailSent          = "mail_sent"
	auditEventMailMarkedRead    = "mail_marked_read"
	auditEventMailExported      = "mail_exported"
)

// Gate denial reasons carried in the "reason" metadata of gate_denied events.
const (
	GateReasonMissingToken = "missing_token"
	GateReasonInvalidToken = "invalid_token"
	GateReasonExpiredToken = "expired_token"
)

// AuditErrorCode is the stable error label written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrExpiredToken       AuditErrorCode = "expired_token"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrMessageNotFound    AuditErrorCode = "message_not_found"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
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
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenExpired):
		return auditErrExpiredToken
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrMessageNotFound),
		errors.Is(err, ErrMessageNotInInbox):
		return auditErrMessageNotFound
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
