// Package dedupe tracks recently seen request IDs for idempotency.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen request IDs so a retried issuance request is answered
// once instead of being submitted twice.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it if
	// not. Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen set so the request can be
	// retried. Used when a recorded request failed before reaching the
	// ledger.
	Unrecord(ctx context.Context, id string)

	// Size returns the current number of recorded IDs.
	Size() int
}

const defaultMaxSize = 50_000

// inMemoryDeduper is a bounded seen-set with FIFO eviction. The ring holds
// insertion order; when full, the oldest slot is evicted to admit the new
// one. seen maps each ID to its current ring slot: an Unrecord leaves a
// ghost slot behind, and a later re-record of the same ID must survive that
// ghost's eviction, so eviction only deletes an ID whose mapped slot is the
// one being reclaimed.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int
	ring    []string
	head    int
	count   int
	maxSize int
}

// Option applies a configuration option to the deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of IDs kept in memory.
func WithMaxSize(n int) Option {
	return func(d *inMemoryDeduper) {
		if n > 0 {
			d.maxSize = n
		}
	}
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int, d.maxSize)
	d.ring = make([]string, d.maxSize)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.count == d.maxSize {
		oldest := d.ring[d.head]
		if slot, ok := d.seen[oldest]; ok && slot == d.head {
			delete(d.seen, oldest)
		}
		d.head = (d.head + 1) % d.maxSize
		d.count--
	}

	slot := (d.head + d.count) % d.maxSize
	d.ring[slot] = id
	d.seen[id] = slot
	d.count++
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
	// The ring slot stays as a ghost; eviction skips it because the slot
	// check above no longer matches.
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
