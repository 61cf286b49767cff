// Package eligibility decides whether an account may request an issuance and
// drives the cooldown countdown.
package eligibility

import (
	"context"
	"sync"
	"time"

	"github.com/yapmint/yapmint/internal/domain/model"
	"github.com/yapmint/yapmint/pkg/metrics"
)

// DefaultCooldown is the minimum gap between two issuances per account.
const DefaultCooldown = 86_400 * time.Second

// Status is the derived eligibility view. It is recomputed from account
// state and wall-clock time and never persisted.
type Status struct {
	Eligible         bool  `json:"eligible"`
	SecondsRemaining int64 `json:"seconds_remaining"`
}

// Tracker evaluates eligibility against a fixed cooldown window. The ledger
// remains the authority on last-issuance times; this view is advisory.
type Tracker struct {
	cooldown time.Duration
	tick     time.Duration
	clock    func() time.Time
}

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithCooldown sets the cooldown window.
func WithCooldown(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.cooldown = d
		}
	}
}

// WithTickInterval sets the countdown tick interval. Used by tests; the
// production interval is one second.
func WithTickInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.tick = d
		}
	}
}

// WithClock sets the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// NewTracker creates a Tracker with configuration options.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		cooldown: DefaultCooldown,
		tick:     time.Second,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Cooldown returns the configured cooldown window.
func (t *Tracker) Cooldown() time.Duration {
	return t.cooldown
}

// Evaluate computes the eligibility status for state at nowUnix. Pure and
// total: the same inputs always give the same status.
func (t *Tracker) Evaluate(state model.AccountState, nowUnix int64) Status {
	cooldownSecs := int64(t.cooldown / time.Second)
	elapsed := nowUnix - state.LastIssuanceUnix
	if elapsed >= cooldownSecs {
		return Status{Eligible: true, SecondsRemaining: 0}
	}
	return Status{Eligible: false, SecondsRemaining: cooldownSecs - elapsed}
}

// EvaluateNow evaluates state against the tracker's own clock.
func (t *Tracker) EvaluateNow(state model.AccountState) Status {
	return t.Evaluate(state, t.clock().Unix())
}

// Countdown is a cancellable once-per-second recomputation of Status. Each
// tick re-derives the remaining time from the wall clock, so ticks cannot
// drift. The countdown stops itself once the account becomes eligible.
type Countdown struct {
	updates  chan Status
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// StartCountdown begins ticking for state. The initial status is emitted
// immediately; while SecondsRemaining > 0 a fresh status follows every tick.
// The updates channel is closed when the countdown completes, is stopped, or
// ctx is cancelled.
func (t *Tracker) StartCountdown(ctx context.Context, state model.AccountState) *Countdown {
	c := &Countdown{
		updates: make(chan Status, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	metrics.UpdateCountdownsActive(1)
	go func() {
		defer func() {
			close(c.updates)
			close(c.done)
			metrics.UpdateCountdownsActive(-1)
		}()

		status := t.Evaluate(state, t.clock().Unix())
		c.emit(status)
		if status.Eligible {
			return
		}

		ticker := time.NewTicker(t.tick)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				status = t.Evaluate(state, t.clock().Unix())
				c.emit(status)
				if status.Eligible {
					return
				}
			}
		}
	}()

	return c
}

// emit delivers a status without blocking: if the consumer lags, the stale
// status is replaced by the fresh one.
func (c *Countdown) emit(status Status) {
	select {
	case c.updates <- status:
	default:
		select {
		case <-c.updates:
		default:
		}
		select {
		case c.updates <- status:
		default:
		}
	}
}

// Updates returns the channel of countdown statuses.
func (c *Countdown) Updates() <-chan Status {
	return c.updates
}

// Stop tears the countdown down. Safe to call multiple times and after the
// countdown has already finished.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
	<-c.done
}
