// Package model contains domain models passed between layers.
package model

import "time"

// ScoreRecord is one attention-score snapshot for a handle. Records are
// immutable once fetched; a new fetch produces a new record rather than
// mutating the old one.
type ScoreRecord struct {
	Handle     string
	RawScore   uint64 // activity over the trailing 24h window
	Rank       *uint64
	Normalized *float64
	Transport  string // transport that produced the record
	FetchedAt  time.Time
}

// AccountState is the ledger-owned view of an account. LastIssuanceUnix is
// authoritative on the ledger; zero means the account has never been issued.
type AccountState struct {
	AccountID        string
	Balance          string // decimal string, never empty for a known account
	LastIssuanceUnix int64
}

// IssuanceRequest is built per issuance attempt and not retained after
// settlement.
type IssuanceRequest struct {
	Handle   string
	RawScore uint64
}

// Receipt confirms a settled issuance.
type Receipt struct {
	SettlementRef string
}

// Settlement is the audit-trail record emitted after a settled issuance.
type Settlement struct {
	AccountID     string
	Handle        string
	RawScore      uint64
	Amount        uint64
	SettlementRef string
	SubmittedAt   time.Time

	// Balance is the ledger balance read back after settlement. Empty when
	// the post-settlement refresh failed; the credit itself still happened.
	Balance string
}
