package service

import "errors"

var (
	// ErrNotStarted is returned when an operation runs before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrNotConnected is returned when no wallet account is connected.
	ErrNotConnected = errors.New("no wallet account connected")

	// ErrIssuanceInFlight is returned when an issuance for the same account
	// is already in progress. The second request never reaches the ledger.
	ErrIssuanceInFlight = errors.New("issuance already in flight for account")

	// ErrCooldownActive is returned when the account's cooldown window has
	// not elapsed yet.
	ErrCooldownActive = errors.New("cooldown active")
)
