package goMail

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goMail/jwt"
)

// Authenticate verifies a session token and returns its identity. It is the
// only path from a token to a user id that callers may trust.
//
// Failures are ErrTokenExpired for a well-signed token past exp and
// ErrTokenInvalid for everything else.
func (e *Engine) Authenticate(token string) (Identity, error) {
	if e == nil || e.jwtManager == nil {
		return Identity{}, ErrEngineNotReady
	}

	start := time.Now()
	claims, err := e.jwtManager.Verify(token)
	if e.metrics != nil {
		e.metrics.Observe(MetricGateLatency, time.Since(start))
	}
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrTokenInvalid
	}

	id := Identity{UserID: claims.UserID}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}

	return id, nil
}

// RecordGateAllowed counts a request that passed the access gate.
func (e *Engine) RecordGateAllowed() {
	e.metricInc(MetricGateAllowed)
}

// RecordGateDenial counts a rejected request and emits a gate_denied audit
// event. claimedUserID is an unverified hint and is stored only as such.
func (e *Engine) RecordGateDenial(ctx context.Context, reason, claimedUserID string) {
	if e == nil {
		return
	}

	var cause error
	switch reason {
	case GateReasonMissingToken:
		e.metricInc(MetricGateDeniedMissing)
	case GateReasonExpiredToken:
		e.metricInc(MetricGateDeniedExpired)
		cause = ErrTokenExpired
	default:
		e.metricInc(MetricGateDeniedInvalid)
		cause = ErrTokenInvalid
	}

	if e.audit == nil {
		return
	}
	event := AuditEvent{
		Timestamp:     time.Now().UTC(),
		EventType:     auditEventGateDenied,
		ClaimedUserID: claimedUserID,
		IP:            ClientIPFromContext(ctx),
		Metadata:      map[string]string{"reason": reason},
	}
	if cause != nil {
		event.Error = string(auditErrorCode(cause))
	}
	e.audit.Emit(ctx, event)
}
