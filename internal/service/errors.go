package service

import "errors"

// Error kinds exposed to the transport layer. Callers classify failures with
// errors.Is and map them to their own status codes; the core never signals
// "not found" or "not a member" through panics or sentinel-free errors.
var (
	// ErrNotFound marks a missing group, expense or settlement record.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized marks an operation by a user who is not a member of
	// the group (or not the creator, where creator-only rules apply).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation marks malformed input: split sums that do not match
	// the expense total, non-positive amounts, self-payments, unknown
	// statuses or backwards status transitions.
	ErrValidation = errors.New("validation failed")
)
