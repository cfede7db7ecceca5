// Package audit implements the asynchronous audit trail. Mutations hand a
// record to the dispatcher and move on; a background worker persists records
// and failures are logged, never propagated back to the mutation.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/substratehq/substrate/internal/domain"
)

// Writer persists audit records. Implemented by the postgres audit repo.
type Writer interface {
	Insert(ctx context.Context, rec *domain.AuditRecord) error
}

// Dispatcher queues audit records on a bounded channel and writes them from
// a single background worker. When the queue is full the record is dropped
// and a warning is logged; auditing must never block or fail a mutation.
type Dispatcher struct {
	writer Writer
	log    *slog.Logger

	queue chan domain.AuditRecord
	done  chan struct{}
}

// NewDispatcher creates a dispatcher with the given queue capacity and
// starts its worker. Call Stop() on shutdown to drain the queue.
func NewDispatcher(writer Writer, log *slog.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}

	d := &Dispatcher{
		writer: writer,
		log:    log,
		queue:  make(chan domain.AuditRecord, queueSize),
		done:   make(chan struct{}),
	}
	go d.run()

	return d
}

// Record enqueues one audit record without blocking. The record's CreatedAt
// is stamped here so queue latency does not skew it.
func (d *Dispatcher) Record(rec domain.AuditRecord) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	select {
	case d.queue <- rec:
	default:
		d.log.Warn("audit queue full, dropping record",
			"action", string(rec.Action),
			"category", rec.Category,
			"entity_type", rec.EntityType,
		)
	}
}

// Stop closes the queue and waits for the worker to drain it.
func (d *Dispatcher) Stop() {
	close(d.queue)
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for rec := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.writer.Insert(ctx, &rec); err != nil {
			d.log.Error("write audit record",
				"error", err,
				"action", string(rec.Action),
				"entity_type", rec.EntityType,
			)
		}
		cancel()
	}
}
