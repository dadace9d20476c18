package goMail

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Environment = EnvDevelopment
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.BufferSize = 256
	cfg.Audit.DropIfFull = false
	return cfg
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func buildTestEngine(t *testing.T, cfg Config, rdb redis.UniversalClient, sink AuditSink) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAuditSink(sink).
		Build()
	require.NoError(t, err, "Build")
	t.Cleanup(engine.Close)
	return engine
}

func newTestEngine(t *testing.T) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	return buildTestEngine(t, testConfig(), rdb, nil), mr
}

func mustSignup(t *testing.T, e *Engine, first, last, email string) User {
	t.Helper()

	u, err := e.Signup(context.Background(), SignupInput{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Password:  signupPassword,
	})
	require.NoError(t, err, "Signup(%s)", email)
	return u
}

func waitForEvent(t *testing.T, sink *ChannelSink, eventType string) AuditEvent {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sink.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-deadline:
			require.FailNow(t, "timed out waiting for audit event", eventType)
			return AuditEvent{}
		}
	}
}
