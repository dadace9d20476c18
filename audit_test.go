package goMail

import (
	"bytes"
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func TestAuditDispatcherDisabledIsNil(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, &countingSink{})
	require.Nil(t, d, "disabled dispatcher should be nil")
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	assert.Zero(t, d.Dropped(), "nil dispatcher must report zero drops")
}

func TestAuditDispatcherDrainsOnClose(t *testing.T) {
	sink := &countingSink{}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 128}, sink)

	for i := 0; i < 100; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "e"})
	}
	d.Close()

	assert.EqualValues(t, 100, sink.Count())
}

func TestAuditDispatcherDropsWhenFull(t *testing.T) {
	sink := newGateSink()
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// The worker takes the first event and blocks in the sink; the second
	// fills the queue.
	d.Emit(context.Background(), AuditEvent{})
	deadline := time.Now().Add(time.Second)
	for len(d.queue) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	d.Emit(context.Background(), AuditEvent{})

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{})
	}
	assert.EqualValues(t, 5, d.Dropped())

	close(sink.gate)
	d.Close()
}

func TestAuditDispatcherBlockingRespectsContext(t *testing.T) {
	sink := newGateSink()
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1}, sink)

	d.Emit(context.Background(), AuditEvent{})
	deadline := time.Now().Add(time.Second)
	for len(d.queue) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	d.Emit(context.Background(), AuditEvent{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Emit(ctx, AuditEvent{})
	assert.EqualValues(t, 1, d.Dropped())

	close(sink.gate)
	d.Close()
}

func TestAuditEmitAfterCloseIgnored(t *testing.T) {
	sink := &countingSink{}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4}, sink)
	d.Close()
	d.Emit(context.Background(), AuditEvent{})
	d.Close()

	assert.Zero(t, sink.Count(), "events after Close must not reach the sink")
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{EventType: "login_success", UserID: "u1", Success: true})
	sink.Emit(context.Background(), AuditEvent{EventType: "gate_denied", ClaimedUserID: "u2"})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var ev AuditEvent
	require.NoError(t, json.Unmarshal(lines[1], &ev))
	assert.Equal(t, "u2", ev.ClaimedUserID)
	assert.Empty(t, ev.UserID)
}

func TestEngineEmitsLoginAuditEvents(t *testing.T) {
	_, rdb := newTestRedis(t)
	sink := NewChannelSink(64)
	engine := buildTestEngine(t, testConfig(), rdb, sink)
	u := mustSignup(t, engine, "Ada", "Lovelace", "ada@example.com")

	assert.Equal(t, u.ID, waitForEvent(t, sink, auditEventSignupSuccess).UserID)

	_, _ = engine.Login(context.Background(), "ada@example.com", "wrong password")
	ev := waitForEvent(t, sink, auditEventLoginFailure)
	assert.Equal(t, string(auditErrInvalidCredentials), ev.Error)
	assert.Equal(t, "wrong_password", ev.Metadata["reason"])

	_, err := engine.Login(context.Background(), "ada@example.com", signupPassword)
	require.NoError(t, err)
	ev = waitForEvent(t, sink, auditEventLoginSuccess)
	assert.True(t, ev.Success)
	assert.Equal(t, u.ID, ev.UserID)
}
