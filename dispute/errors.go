package dispute

import "errors"

// Category sentinels for the failure taxonomy. Specific failures wrap one of
// these, so callers can match either the category or the wrapped detail.
var (
	// ErrValidation covers malformed input: empty title, zero damages,
	// self-dispute, unknown identities, bad enum values.
	ErrValidation = errors.New("dispute: validation failed")
	// ErrUnauthorized covers callers or assignees lacking the required
	// party or capability relationship to the operation.
	ErrUnauthorized = errors.New("dispute: unauthorized")
	// ErrBadStatus covers operations attempted from a status that does not
	// permit them.
	ErrBadStatus = errors.New("dispute: invalid status transition")
	// ErrFunds covers ledger failures: insufficient balance, or an award
	// that exceeds the escrowed amount at enforcement.
	ErrFunds = errors.New("dispute: funds transfer failed")
	// ErrReentrant signals a nested mutation of a dispute that already has
	// a mutation in flight.
	ErrReentrant = errors.New("dispute: reentrant mutation")
	// ErrNotFound signals an unknown dispute or evidence id.
	ErrNotFound = errors.New("dispute: not found")
	// ErrPaused signals that mutating operations are administratively paused.
	ErrPaused = errors.New("dispute: operations are paused")
)
