// Package provider retrieves attention scores through an ordered chain of
// fallback transports.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yapmint/yapmint/internal/domain/model"
	"github.com/yapmint/yapmint/pkg/logger"
	"github.com/yapmint/yapmint/pkg/metrics"
)

// Transport is one concrete network path to the score provider.
type Transport interface {
	// Name identifies the transport in logs and metrics.
	Name() string

	// Fetch returns the raw provider payload for handle.
	Fetch(ctx context.Context, handle string) ([]byte, error)
}

// Pipeline tries each transport in order and returns the first valid score
// record. Attempts are sequential: a transport is fully awaited before the
// next one starts, so total wall-clock cost is bounded by the sum of
// per-transport timeouts.
//
// When every transport fails the pipeline surfaces ErrDataUnavailable. It
// never substitutes synthetic data: fabricated scores must not drive an
// issuance decision.
type Pipeline struct {
	transports []Transport
	timeout    time.Duration
	logger     logger.Logger
}

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithTimeout bounds each individual transport attempt.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

const defaultTransportTimeout = 8 * time.Second

// NewPipeline creates a Pipeline over the given transports, tried in order.
func NewPipeline(transports []Transport, opts ...Option) *Pipeline {
	p := &Pipeline{
		transports: transports,
		timeout:    defaultTransportTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Named("provider")
	}
	return p
}

// FetchScore retrieves the attention score for handle. The leading "@" is
// tolerated and stripped.
func (p *Pipeline) FetchScore(ctx context.Context, handle string) (model.ScoreRecord, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return model.ScoreRecord{}, fmt.Errorf("%w: empty handle", ErrInvalidHandle)
	}

	start := time.Now()
	defer func() {
		metrics.RecordFetchDuration(float64(time.Since(start).Milliseconds()))
	}()

	for _, transport := range p.transports {
		record, err := p.tryTransport(ctx, transport, handle)
		if err == nil {
			p.logger.Debug(ctx, "score fetched",
				logger.String("handle", handle),
				logger.String("transport", transport.Name()),
				logger.Uint64("raw_score", record.RawScore),
			)
			return record, nil
		}
		if ctx.Err() != nil {
			return model.ScoreRecord{}, fmt.Errorf("fetch aborted: %w", ctx.Err())
		}
		p.logger.Warn(ctx, "transport failed, trying next",
			logger.String("handle", handle),
			logger.String("transport", transport.Name()),
			logger.Error(err),
		)
	}

	metrics.RecordFetchExhausted()
	return model.ScoreRecord{}, fmt.Errorf("%w: all %d transports failed for %q",
		ErrDataUnavailable, len(p.transports), handle)
}

// tryTransport runs a single bounded attempt and parses its payload.
func (p *Pipeline) tryTransport(ctx context.Context, t Transport, handle string) (model.ScoreRecord, error) {
	metrics.RecordFetchAttempt(t.Name())

	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := t.Fetch(attemptCtx, handle)
	if err != nil {
		metrics.RecordFetchFailure(t.Name(), "network")
		return model.ScoreRecord{}, err
	}

	record, err := parsePayload(body)
	if err != nil {
		metrics.RecordFetchFailure(t.Name(), "payload")
		return model.ScoreRecord{}, err
	}

	record.Handle = handle
	record.Transport = t.Name()
	record.FetchedAt = time.Now()
	return record, nil
}

// Transports returns the configured transport names in order.
func (p *Pipeline) Transports() []string {
	names := make([]string, len(p.transports))
	for i, t := range p.transports {
		names[i] = t.Name()
	}
	return names
}
