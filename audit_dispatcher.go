package goMail

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples request goroutines from the sink. Events are
// queued on a buffered channel and drained by one worker.
type auditDispatcher struct {
	sink       AuditSink
	dropIfFull bool
	queue      chan AuditEvent

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, cfg.BufferSize),
		done:       make(chan struct{}),
	}
	go d.drain()

	return d
}

func (d *auditDispatcher) drain() {
	defer close(d.done)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event. With DropIfFull a full queue drops the event and counts
// it; otherwise Emit blocks until there is room or ctx ends.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops accepting events and waits until queued ones reach the sink.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
