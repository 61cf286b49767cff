// Package worker drains settled issuances into the audit trail.
package worker

import (
	"context"
	"fmt"

	"github.com/yapmint/yapmint/internal/adapters/mq/queue"
	"github.com/yapmint/yapmint/pkg/logger"
	"github.com/yapmint/yapmint/pkg/metrics"
)

// Source is what the worker reads settlements from.
type Source interface {
	Dequeue(ctx context.Context) <-chan queue.Settlement
}

// AuditWorker consumes settlement records and writes one structured audit
// line per settled issuance. It runs strictly after settlement: dropping a
// record loses an audit line, never a token.
type AuditWorker struct {
	source Source
	logger logger.Logger

	shutdown chan struct{}
	done     chan struct{}
}

// Option applies a configuration option to the AuditWorker.
type Option func(*AuditWorker)

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *AuditWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewAuditWorker creates a worker reading from source.
func NewAuditWorker(source Source, opts ...Option) *AuditWorker {
	w := &AuditWorker{
		source:   source,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named("audit")
	}
	return w
}

// Run consumes records until ctx is cancelled, Shutdown is called, or the
// source closes.
func (w *AuditWorker) Run(ctx context.Context) {
	defer close(w.done)

	records := w.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-records:
			if !ok {
				return
			}
			w.record(ctx, s)
		}
	}
}

func (w *AuditWorker) record(ctx context.Context, s queue.Settlement) {
	metrics.RecordAuditRecord()
	w.logger.Info(ctx, "issuance settled",
		logger.String("account", s.AccountID),
		logger.String("handle", s.Handle),
		logger.Uint64("raw_score", s.RawScore),
		logger.Uint64("amount", s.Amount),
		logger.String("settlement_ref", s.SettlementRef),
		logger.Int64("submitted_at", s.SubmittedAt.Unix()),
	)
}

// Shutdown stops the worker and waits for it to finish.
func (w *AuditWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
		// already shut down
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit worker shutdown timed out: %w", ctx.Err())
	}
}
