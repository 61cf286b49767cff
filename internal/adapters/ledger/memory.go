package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yapmint/yapmint/internal/domain/model"
	"github.com/yapmint/yapmint/internal/domain/reward"
)

// MemoryClient is an in-process ledger with the same semantics as the
// ledgerd service: it enforces the cooldown server-side and owns the
// authoritative last-issuance timestamps. Used as a test double and for
// local development without a ledgerd instance.
type MemoryClient struct {
	mu       sync.Mutex
	accounts map[string]*memAccount
	cooldown time.Duration
	calc     *reward.Calculator
	clock    func() time.Time
}

type memAccount struct {
	balance          uint64
	lastIssuanceUnix int64
}

// MemoryOption configures MemoryClient.
type MemoryOption func(*MemoryClient)

// WithMemoryCooldown sets the server-side cooldown window.
func WithMemoryCooldown(d time.Duration) MemoryOption {
	return func(c *MemoryClient) {
		if d > 0 {
			c.cooldown = d
		}
	}
}

// WithMemoryCalculator sets the reward calculator used for settlement.
func WithMemoryCalculator(calc *reward.Calculator) MemoryOption {
	return func(c *MemoryClient) {
		if calc != nil {
			c.calc = calc
		}
	}
}

// WithMemoryClock sets the time source. Used by tests.
func WithMemoryClock(clock func() time.Time) MemoryOption {
	return func(c *MemoryClient) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewMemoryClient creates an in-memory ledger client.
func NewMemoryClient(opts ...MemoryOption) *MemoryClient {
	c := &MemoryClient{
		accounts: make(map[string]*memAccount),
		cooldown: 86_400 * time.Second,
		calc:     reward.NewCalculator(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryClient) account(id string) *memAccount {
	acct, ok := c.accounts[id]
	if !ok {
		acct = &memAccount{}
		c.accounts[id] = acct
	}
	return acct
}

// Balance implements Client. Unknown accounts have balance "0".
func (c *MemoryClient) Balance(_ context.Context, accountID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strconv.FormatUint(c.account(accountID).balance, 10), nil
}

// LastIssuanceTime implements Client. Unknown accounts return 0.
func (c *MemoryClient) LastIssuanceTime(_ context.Context, accountID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account(accountID).lastIssuanceUnix, nil
}

// Submit implements Client with the authoritative cooldown check.
func (c *MemoryClient) Submit(_ context.Context, req model.IssuanceRequest, accountID string) (model.Receipt, error) {
	if strings.TrimSpace(req.Handle) == "" {
		return model.Receipt{}, fmt.Errorf("%w: empty handle", ErrRejected)
	}
	if strings.TrimSpace(accountID) == "" {
		return model.Receipt{}, fmt.Errorf("%w: empty account", ErrRejected)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock().Unix()
	acct := c.account(accountID)
	cooldownSecs := int64(c.cooldown / time.Second)
	if acct.lastIssuanceUnix != 0 && now-acct.lastIssuanceUnix < cooldownSecs {
		return model.Receipt{}, fmt.Errorf("%w: cooldown active for %s",
			ErrRejected, accountID)
	}

	acct.balance += c.calc.Amount(req.RawScore)
	acct.lastIssuanceUnix = now
	return model.Receipt{SettlementRef: uuid.NewString()}, nil
}
