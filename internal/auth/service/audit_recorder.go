package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/domain"
)

const defaultAuditBufferSize = 1024

type AuditConfig struct {
	Async      bool
	BufferSize int
	DropIfFull bool
}

// AuditRecorder appends security events without ever failing the caller.
// In async mode a single worker drains a buffered channel; in sync mode the
// sink is called inline. Sink errors are logged and counted, never returned.
type AuditRecorder struct {
	store   domain.AuditStore
	cfg     AuditConfig
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	ch   chan domain.AuditEvent
	done chan struct{}
	wg   sync.WaitGroup
	// sendMu is held shared by senders and exclusively by Close, so no send
	// can land in ch after the worker has drained it.
	sendMu    sync.RWMutex
	closed    bool
	dropped   atomic.Uint64
	failed    atomic.Uint64
	closeOnce sync.Once
}

func NewAuditRecorder(store domain.AuditStore, cfg AuditConfig, logger *slog.Logger, metrics *Metrics) *AuditRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &AuditRecorder{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if cfg.Async {
		if cfg.BufferSize <= 0 {
			cfg.BufferSize = defaultAuditBufferSize
		}
		r.cfg = cfg
		r.ch = make(chan domain.AuditEvent, cfg.BufferSize)
		r.wg.Add(1)
		go r.run()
	}
	return r
}

// NewEvent stamps an event with an id and the recorder's clock.
func (r *AuditRecorder) NewEvent(kind domain.EventKind, actorID string, fields map[string]string) domain.AuditEvent {
	return domain.AuditEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		ActorID:    actorID,
		OccurredAt: r.now().UTC(),
		Context:    fields,
	}
}

// Record hands events to the sink in order. Events recorded after Close
// are counted as dropped.
func (r *AuditRecorder) Record(ctx context.Context, events ...domain.AuditEvent) {
	if r == nil || r.store == nil {
		return
	}

	r.sendMu.RLock()
	defer r.sendMu.RUnlock()
	if r.closed {
		r.dropped.Add(uint64(len(events)))
		return
	}
	for _, event := range events {
		if r.ch == nil {
			r.append(ctx, event)
			continue
		}
		r.enqueue(ctx, event)
	}
}

func (r *AuditRecorder) enqueue(ctx context.Context, event domain.AuditEvent) {
	if r.cfg.DropIfFull {
		select {
		case r.ch <- event:
		default:
			r.dropped.Add(1)
			r.metrics.auditDrop(ctx)
			r.logger.Warn("audit buffer full, event dropped", "kind", event.Kind, "actor_id", event.ActorID)
		}
		return
	}

	select {
	case r.ch <- event:
	case <-ctx.Done():
		r.dropped.Add(1)
		r.metrics.auditDrop(ctx)
		r.logger.Warn("audit event dropped on cancelled request", "kind", event.Kind, "actor_id", event.ActorID)
	}
}

func (r *AuditRecorder) run() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.ch:
			r.append(context.Background(), event)
		case <-r.done:
			for {
				select {
				case event := <-r.ch:
					r.append(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

func (r *AuditRecorder) append(ctx context.Context, event domain.AuditEvent) {
	// Audit persistence outlives request cancellation.
	ctx = context.WithoutCancel(ctx)
	if err := r.store.Append(ctx, event); err != nil {
		r.failed.Add(1)
		r.metrics.auditFailure(ctx)
		r.logger.Error("failed to append audit event",
			"kind", event.Kind,
			"event_id", event.ID,
			"actor_id", event.ActorID,
			"error", err,
		)
	}
}

// Close stops accepting events and drains whatever is buffered.
func (r *AuditRecorder) Close() {
	if r == nil {
		return
	}
	r.closeOnce.Do(func() {
		r.sendMu.Lock()
		r.closed = true
		r.sendMu.Unlock()

		close(r.done)
		r.wg.Wait()
	})
}

func (r *AuditRecorder) Dropped() uint64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

func (r *AuditRecorder) Failed() uint64 {
	if r == nil {
		return 0
	}
	return r.failed.Load()
}
