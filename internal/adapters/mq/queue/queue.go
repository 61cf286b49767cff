// Package queue defines the contract for buffering settlement records on
// their way to the audit trail.
package queue

import (
	"context"
	"sync"

	"github.com/yapmint/yapmint/internal/domain/model"
	"github.com/yapmint/yapmint/pkg/metrics"
)

// Settlement is the payload type flowing through the queue.
type Settlement = model.Settlement

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
// Enqueue is fire-and-forget from the issuance path: audit backpressure must
// never delay or fail a settlement that the ledger already confirmed.
type Queue interface {
	// Enqueue adds a settlement record. Returns false if the queue is full
	// or closed; the record is then dropped and counted.
	Enqueue(ctx context.Context, s Settlement) bool

	// Dequeue returns a channel receiving records as they become
	// available. The channel closes when the queue closes.
	Dequeue(ctx context.Context) <-chan Settlement

	// Len returns the number of buffered records.
	Len(ctx context.Context) int

	// Close shuts the queue down. Buffered records remain consumable.
	Close() error
}

const defaultCapacity = 4_096

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	records chan Settlement
	mu      sync.RWMutex
	closed  bool
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*config)

type config struct {
	capacity int
}

// WithCapacity bounds the queue.
func WithCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// NewInMemoryQueue creates an in-memory settlement queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	cfg := config{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	metrics.UpdateAuditQueueCapacity(cfg.capacity)
	metrics.UpdateAuditQueueSize(0)
	return &InMemoryQueue{records: make(chan Settlement, cfg.capacity)}
}

// Enqueue implements Queue.
func (q *InMemoryQueue) Enqueue(_ context.Context, s Settlement) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordAuditDropped()
		return false
	}
	select {
	case q.records <- s:
		metrics.UpdateAuditQueueSize(len(q.records))
		return true
	default:
		metrics.RecordAuditDropped()
		return false
	}
}

// Dequeue implements Queue.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Settlement {
	out := make(chan Settlement)
	go func() {
		defer close(out)
		for s := range q.records {
			select {
			case out <- s:
				metrics.UpdateAuditQueueSize(len(q.records))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len implements Queue.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.records)
}

// Close implements Queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.records)
	q.closed = true
	return nil
}
