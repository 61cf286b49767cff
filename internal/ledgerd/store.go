// Package ledgerd implements the ledger service: the authoritative store of
// balances and last-issuance times, exposed over JSON-RPC.
package ledgerd

import (
	"context"
	"errors"
)

// Storage errors.
var (
	// ErrDuplicateRef means a settlement reference was applied twice.
	ErrDuplicateRef = errors.New("duplicate settlement reference")
)

// Account is the stored per-account state. Balance is kept as an integer
// token count; the RPC layer renders it as a decimal string.
type Account struct {
	AccountID        string
	Balance          uint64
	LastIssuanceUnix int64
}

// Issuance is one settled issuance to apply against an account.
type Issuance struct {
	AccountID     string
	Handle        string
	RawScore      uint64
	Amount        uint64
	SettlementRef string
	IssuedAtUnix  int64
}

// Store persists accounts and issuances. An unknown account reads as the
// zero Account, never an error.
type Store interface {
	// Account returns the current state for accountID.
	Account(ctx context.Context, accountID string) (Account, error)

	// Apply atomically credits the amount and advances the account's
	// last-issuance time to the issuance timestamp.
	Apply(ctx context.Context, iss Issuance) error

	// Close releases storage resources.
	Close() error
}
