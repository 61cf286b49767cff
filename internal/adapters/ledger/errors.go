package ledger

import "errors"

// Sentinel kinds for ledger errors.
var (
	// ErrUnavailable means the ledger service could not be reached or
	// answered with something other than a well-formed RPC response.
	ErrUnavailable = errors.New("ledger unavailable")

	// ErrRejected means the ledger explicitly refused the request, e.g.
	// the server-side cooldown check failed or the handle was malformed.
	ErrRejected = errors.New("issuance rejected by ledger")
)
