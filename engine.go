package goMail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrEthical07/goMail/internal/rate"
	"github.com/MrEthical07/goMail/jwt"
	"github.com/MrEthical07/goMail/mailstore"
	"github.com/MrEthical07/goMail/password"
	"github.com/MrEthical07/goMail/session"
)

// Engine runs accounts, sessions and mailboxes over a Redis-backed store.
//
// An Engine is created by [Builder.Build] and is safe for concurrent use.
type Engine struct {
	config       Config
	logger       *slog.Logger
	store        *mailstore.Store
	rateLimiter  *rate.Limiter
	audit        *auditDispatcher
	metrics      *Metrics
	passwordHash *password.Hasher
	jwtManager   *jwt.Manager
}

// Close flushes queued audit events. It does not close the Redis client.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// CookieConfig returns the session cookie attributes for this environment.
func (e *Engine) CookieConfig() session.CookieConfig {
	if e == nil {
		return session.CookieConfig{Secure: true}
	}
	return session.CookieConfig{
		Secure: e.config.SecureCookies(),
		MaxAge: e.config.JWT.TTL,
		Domain: e.config.Session.CookieDomain,
	}
}

// Ping reports the round-trip time to Redis.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	d, err := e.store.Ping(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return d, nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n uint64) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Add(id, n)
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
