package ledger

import "errors"

var (
	// ErrUnauthorized is returned when the caller lacks the required role,
	// the ledger is paused, or the schedule is not revocable.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when no schedule exists at the given key.
	ErrNotFound = errors.New("schedule not found")

	// ErrInvalidParameters is returned for malformed creation arguments.
	ErrInvalidParameters = errors.New("invalid schedule parameters")

	// ErrNoTokensToRelease is returned when the releasable amount is zero.
	ErrNoTokensToRelease = errors.New("no tokens to release")

	// ErrCliffNotReached is returned for a release attempted before the cliff.
	ErrCliffNotReached = errors.New("cliff not reached")

	// ErrVestingEnded is returned for operations on an already-revoked schedule.
	ErrVestingEnded = errors.New("vesting ended")

	// ErrTransferFailed is returned when the underlying asset movement fails.
	// The whole operation aborts with no state committed.
	ErrTransferFailed = errors.New("transfer failed")
)
