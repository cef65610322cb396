// Package audit persists security events without ever blocking the
// authentication path.
package audit

import (
	"context"
	"log"
	"sync"
	"time"

	guardiao "github.com/guardiao-iam/guardiao"
	"github.com/guardiao-iam/guardiao/models"
)

// Writer persists a single audit row. The gorm-backed implementation lives in
// the store package.
type Writer interface {
	WriteAuditEvent(ctx context.Context, e *models.AuditEvent) error
}

// Sink buffers events on a bounded channel and writes them from a single
// background worker. Record never blocks: when the buffer is full the event
// is dropped and counted.
type Sink struct {
	writer  Writer
	events  chan guardiao.AuditEvent
	timeout time.Duration

	mu      sync.Mutex
	dropped uint64
	closed  bool
	done    chan struct{}
}

const defaultBuffer = 1024

// NewSink starts the background worker.
func NewSink(w Writer, buffer int) *Sink {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	s := &Sink{
		writer:  w,
		events:  make(chan guardiao.AuditEvent, buffer),
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Record enqueues the event. A full buffer or a closed sink drops the event;
// authentication outcomes never depend on audit capacity.
func (s *Sink) Record(e guardiao.AuditEvent) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	select {
	case s.events <- e:
		s.mu.Unlock()
	default:
		s.dropped++
		n := s.dropped
		s.mu.Unlock()
		log.Printf("[audit] buffer full, dropped event %s (total dropped: %d)", e.Kind, n)
	}
}

// Dropped reports how many events were discarded due to backpressure.
func (s *Sink) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops accepting events, drains the buffer, and waits for the worker.
func (s *Sink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.events)
	<-s.done
}

func (s *Sink) run() {
	defer close(s.done)
	for e := range s.events {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		row := &models.AuditEvent{
			ID:        models.NewID(),
			Kind:      e.Kind,
			IP:        e.IP,
			UserAgent: e.UserAgent,
			Detail:    e.Detail,
			CreatedAt: e.At,
		}
		if e.SubjectID != "" {
			sub := e.SubjectID
			row.SubjectID = &sub
		}
		if err := s.writer.WriteAuditEvent(ctx, row); err != nil {
			// A failed write is logged and forgotten, same as a dropped event.
			log.Printf("[audit] write %s: %v", e.Kind, err)
		}
		cancel()
	}
}
