// Package ledger is the boundary to the ledger service that settles
// issuances and keeps the authoritative cooldown bookkeeping.
package ledger

import (
	"context"

	"github.com/yapmint/yapmint/internal/domain/model"
)

// Client exposes the three ledger RPCs. The concrete endpoint and transport
// are configuration; nothing about the target ledger is baked in.
type Client interface {
	// Balance returns the account's token balance as a decimal string.
	// A zero balance is "0", not an error.
	Balance(ctx context.Context, accountID string) (string, error)

	// LastIssuanceTime returns the unix time of the account's last settled
	// issuance, or 0 if the account has never been issued. This value is
	// the single source of truth for the cooldown.
	LastIssuanceTime(ctx context.Context, accountID string) (int64, error)

	// Submit sends an issuance request for settlement and returns the
	// settlement reference. Submissions are never retried automatically:
	// a failed financial operation must not be silently re-sent.
	Submit(ctx context.Context, req model.IssuanceRequest, accountID string) (model.Receipt, error)
}
