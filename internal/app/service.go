// Package service provides the core issuance service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yapmint/yapmint/internal/adapters/ledger"
	auditqueue "github.com/yapmint/yapmint/internal/adapters/mq/queue"
	auditworker "github.com/yapmint/yapmint/internal/adapters/mq/worker"
	"github.com/yapmint/yapmint/internal/adapters/wallet"
	"github.com/yapmint/yapmint/internal/domain/dedupe"
	"github.com/yapmint/yapmint/internal/domain/eligibility"
	"github.com/yapmint/yapmint/internal/domain/model"
	"github.com/yapmint/yapmint/internal/domain/reward"
	"github.com/yapmint/yapmint/pkg/logger"
	"github.com/yapmint/yapmint/pkg/metrics"
)

// ScoreSource yields attention-score records for a handle.
type ScoreSource interface {
	FetchScore(ctx context.Context, handle string) (model.ScoreRecord, error)
	Transports() []string
}

// issuanceState names the phases of a single issuance attempt. The state
// lives on the stack of Issue; it is never shared between attempts.
type issuanceState string

const (
	stateFetching   issuanceState = "fetching"
	stateFetched    issuanceState = "fetched"
	stateChecked    issuanceState = "eligibility_checked"
	stateBlocked    issuanceState = "blocked"
	stateSubmitting issuanceState = "submitting"
	stateSubmitted  issuanceState = "submitted"
	stateFailed     issuanceState = "submit_failed"
)

// Service implements the API dependencies for the issuance engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	scores     ScoreSource
	ledger     ledger.Client
	wallet     wallet.Provider
	tracker    *eligibility.Tracker
	calculator *reward.Calculator
	deduper    dedupe.Deduper
	auditQueue auditqueue.Queue
	audit      *auditworker.AuditWorker

	// Configuration
	cooldown       time.Duration
	baseRate       uint64
	dedupeSize     int
	auditQueueSize int

	// State
	started       bool
	activeAccount string
	inflight      map[string]struct{}
	stopCh        chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCooldown sets the eligibility cooldown window.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cooldown = d
		}
	}
}

// WithBaseRate sets the reward base rate.
func WithBaseRate(rate uint64) Option {
	return func(s *Service) {
		if rate > 0 {
			s.baseRate = rate
		}
	}
}

// WithDedupeSize sets the size of the request deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithAuditQueueSize sets the capacity of the settlement audit queue.
func WithAuditQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.auditQueueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracker overrides the eligibility tracker. Used by tests to inject
// a fixed clock.
func WithTracker(t *eligibility.Tracker) Option {
	return func(s *Service) {
		if t != nil {
			s.tracker = t
		}
	}
}

// New constructs a new Service over its three boundaries.
func New(scores ScoreSource, lc ledger.Client, wp wallet.Provider, opts ...Option) *Service {
	s := &Service{
		scores:         scores,
		ledger:         lc,
		wallet:         wp,
		cooldown:       24 * time.Hour,
		baseRate:       10,
		dedupeSize:     50_000,
		auditQueueSize: 4_096,
		inflight:       make(map[string]struct{}),
		stopCh:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting issuance service...")

	if s.tracker == nil {
		s.tracker = eligibility.NewTracker(
			eligibility.WithCooldown(s.cooldown),
		)
	}
	if s.calculator == nil {
		s.calculator = reward.NewCalculator(
			reward.WithBaseRate(s.baseRate),
		)
	}
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.auditQueue = auditqueue.NewInMemoryQueue(
		auditqueue.WithCapacity(s.auditQueueSize),
	)
	s.audit = auditworker.NewAuditWorker(s.auditQueue,
		auditworker.WithLogger(s.logger.Named("audit")),
	)
	go s.audit.Run(ctx)
	go s.watchWallet(ctx)

	if accounts, err := s.wallet.ConnectedAccounts(ctx); err == nil && len(accounts) > 0 {
		s.activeAccount = accounts[0]
	}

	s.started = true
	s.logger.Info(ctx, "issuance service started",
		logger.Duration("cooldown", s.cooldown),
		logger.Uint64("baseRate", s.baseRate),
		logger.Any("transports", s.scores.Transports()),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping issuance service...")

	if s.auditQueue != nil {
		_ = s.auditQueue.Close()
	}
	if s.audit != nil {
		drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = s.audit.Shutdown(drainCtx)
		cancel()
	}

	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "issuance service stopped")
}

// watchWallet follows wallet change events, tracking the active account.
func (s *Service) watchWallet(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case c, ok := <-s.wallet.Changes():
			if !ok {
				return
			}
			s.mu.Lock()
			switch {
			case c.Kind == wallet.AccountsChanged && len(c.Accounts) > 0:
				s.activeAccount = c.Accounts[0]
			case c.Kind == wallet.AccountsChanged:
				s.activeAccount = ""
			}
			active := s.activeAccount
			s.mu.Unlock()
			s.logger.Info(ctx, "wallet change",
				logger.String("kind", string(c.Kind)),
				logger.String("activeAccount", active),
			)
		}
	}
}

// Connect asks the wallet for a connection and records the first returned
// account as active.
func (s *Service) Connect(ctx context.Context) ([]string, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}

	accounts, err := s.wallet.RequestConnection(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallet connection: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNotConnected
	}

	s.mu.Lock()
	s.activeAccount = accounts[0]
	s.mu.Unlock()

	s.logger.Info(ctx, "wallet connected",
		logger.String("account", accounts[0]),
		logger.Int("accounts", len(accounts)),
	)
	return accounts, nil
}

// ActiveAccount returns the currently connected account, or ErrNotConnected.
func (s *Service) ActiveAccount(ctx context.Context) (string, error) {
	s.mu.RLock()
	account := s.activeAccount
	s.mu.RUnlock()
	if account != "" {
		return account, nil
	}

	accounts, err := s.wallet.ConnectedAccounts(ctx)
	if err != nil || len(accounts) == 0 {
		return "", ErrNotConnected
	}
	s.mu.Lock()
	s.activeAccount = accounts[0]
	s.mu.Unlock()
	return accounts[0], nil
}

// Account returns the ledger-authoritative state of the active account.
func (s *Service) Account(ctx context.Context) (model.AccountState, error) {
	if !s.isStarted() {
		return model.AccountState{}, ErrNotStarted
	}

	account, err := s.ActiveAccount(ctx)
	if err != nil {
		return model.AccountState{}, err
	}

	balance, err := s.ledger.Balance(ctx, account)
	if err != nil {
		return model.AccountState{}, fmt.Errorf("balance: %w", err)
	}
	last, err := s.ledger.LastIssuanceTime(ctx, account)
	if err != nil {
		return model.AccountState{}, fmt.Errorf("last issuance time: %w", err)
	}

	return model.AccountState{
		AccountID:        account,
		Balance:          balance,
		LastIssuanceUnix: last,
	}, nil
}

// FetchScore resolves a handle's attention score through the transport chain
// and returns it with the reward amount it would currently earn.
func (s *Service) FetchScore(ctx context.Context, handle string) (model.ScoreRecord, uint64, error) {
	if !s.isStarted() {
		return model.ScoreRecord{}, 0, ErrNotStarted
	}

	record, err := s.scores.FetchScore(ctx, handle)
	if err != nil {
		return model.ScoreRecord{}, 0, err
	}
	return record, s.calculator.Amount(record.RawScore), nil
}

// Eligibility evaluates the active account's cooldown against the ledger's
// last-issuance time.
func (s *Service) Eligibility(ctx context.Context) (eligibility.Status, error) {
	if !s.isStarted() {
		return eligibility.Status{}, ErrNotStarted
	}

	state, err := s.Account(ctx)
	if err != nil {
		return eligibility.Status{}, err
	}
	return s.tracker.EvaluateNow(state), nil
}

// StartCountdown begins a live eligibility countdown for the active account.
// The caller owns the returned countdown and must Stop it.
func (s *Service) StartCountdown(ctx context.Context) (*eligibility.Countdown, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}

	state, err := s.Account(ctx)
	if err != nil {
		return nil, err
	}
	return s.tracker.StartCountdown(ctx, state), nil
}

// Issue runs one issuance attempt end to end: fetch the score, re-check
// eligibility against the ledger, submit, and re-sync account state. At most
// one attempt per account is in flight; a concurrent attempt is rejected
// before any ledger call.
func (s *Service) Issue(ctx context.Context, handle string) (model.Settlement, error) {
	if !s.isStarted() {
		return model.Settlement{}, ErrNotStarted
	}

	account, err := s.ActiveAccount(ctx)
	if err != nil {
		return model.Settlement{}, err
	}

	if !s.acquire(account) {
		return model.Settlement{}, fmt.Errorf("%w: %s", ErrIssuanceInFlight, account)
	}
	defer s.release(account)

	metrics.UpdateIssuanceInFlight(1)
	defer metrics.UpdateIssuanceInFlight(-1)

	state := stateFetching
	s.transition(ctx, account, state)
	record, err := s.scores.FetchScore(ctx, handle)
	if err != nil {
		return model.Settlement{}, fmt.Errorf("score fetch: %w", err)
	}
	state = stateFetched
	s.transition(ctx, account, state)

	// The ledger's clock decides; local countdown state is advisory only.
	last, err := s.ledger.LastIssuanceTime(ctx, account)
	if err != nil {
		return model.Settlement{}, fmt.Errorf("last issuance time: %w", err)
	}
	status := s.tracker.EvaluateNow(model.AccountState{
		AccountID:        account,
		LastIssuanceUnix: last,
	})
	state = stateChecked
	s.transition(ctx, account, state)

	if !status.Eligible {
		state = stateBlocked
		metrics.RecordIssuanceBlocked()
		s.logger.Info(ctx, "issuance blocked by cooldown",
			logger.String("account", account),
			logger.String("state", string(state)),
			logger.Int64("secondsRemaining", status.SecondsRemaining),
		)
		return model.Settlement{}, fmt.Errorf("%w: %ds remaining", ErrCooldownActive, status.SecondsRemaining)
	}

	state = stateSubmitting
	s.transition(ctx, account, state)
	metrics.RecordIssuanceSubmitted()
	receipt, err := s.ledger.Submit(ctx, model.IssuanceRequest{
		Handle:   record.Handle,
		RawScore: record.RawScore,
	}, account)
	if err != nil {
		state = stateFailed
		metrics.RecordIssuanceRejected()
		s.logger.Warn(ctx, "issuance submit failed",
			logger.String("account", account),
			logger.String("state", string(state)),
			logger.Error(err),
		)
		return model.Settlement{}, fmt.Errorf("submit: %w", err)
	}
	state = stateSubmitted
	metrics.RecordIssuanceSettled()

	settlement := model.Settlement{
		AccountID:     account,
		Handle:        record.Handle,
		RawScore:      record.RawScore,
		Amount:        s.calculator.Amount(record.RawScore),
		SettlementRef: receipt.SettlementRef,
		SubmittedAt:   time.Now(),
	}

	// Refresh the ledger view now that the credit landed. Best effort: the
	// issuance already settled, a failed read must not turn it into an error.
	if refreshed, err := s.Account(ctx); err != nil {
		s.logger.Warn(ctx, "post-settlement refresh failed",
			logger.String("account", account),
			logger.Error(err),
		)
	} else {
		settlement.Balance = refreshed.Balance
		status = s.tracker.EvaluateNow(refreshed)
		s.logger.Debug(ctx, "post-settlement state",
			logger.String("account", account),
			logger.String("balance", refreshed.Balance),
			logger.Int64("cooldownRemaining", status.SecondsRemaining),
		)
	}

	s.auditQueue.Enqueue(ctx, settlement)

	s.logger.Info(ctx, "issuance settled",
		logger.String("account", account),
		logger.String("state", string(state)),
		logger.String("settlementRef", settlement.SettlementRef),
		logger.Uint64("amount", settlement.Amount),
	)

	return settlement, nil
}

// SeenAndRecord atomically checks whether a request id was seen and records
// it if not. Returns true if the request was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord removes a request id from the seen list, allowing a retry after
// a failed attempt.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

func (s *Service) transition(ctx context.Context, account string, state issuanceState) {
	s.logger.Debug(ctx, "issuance state",
		logger.String("account", account),
		logger.String("state", string(state)),
	)
}

func (s *Service) acquire(account string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[account]; busy {
		return false
	}
	s.inflight[account] = struct{}{}
	return true
}

func (s *Service) release(account string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, account)
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"cooldownSeconds": int64(s.cooldown / time.Second),
		"baseRate":        s.baseRate,
	}

	if s.started {
		stats["activeAccount"] = s.activeAccount
		stats["transports"] = s.scores.Transports()
		stats["auditQueueLength"] = s.auditQueue.Len(ctx)
		stats["dedupeSize"] = s.deduper.Size()
		stats["inFlight"] = len(s.inflight)
	}

	return stats
}
