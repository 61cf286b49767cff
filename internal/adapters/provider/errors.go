package provider

import "errors"

// Sentinel kinds for score retrieval errors.
var (
	// ErrDataUnavailable means every transport was exhausted without a
	// valid payload. Callers must surface this, not mask it.
	ErrDataUnavailable = errors.New("attention score data unavailable")

	// ErrInvalidHandle means the handle was empty or malformed.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrMalformedPayload means a transport answered with a body that does
	// not match the accepted response shape.
	ErrMalformedPayload = errors.New("malformed provider payload")
)
