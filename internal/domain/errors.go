package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrClaimConflict is returned when a claim loses the race for a job.
	// This is an expected outcome, surfaced to the worker as "job just taken".
	ErrClaimConflict = errors.New("job already claimed or not open")

	// ErrWindowClosed is returned when a complaint arrives after the
	// quality score has locked. Permanent; the caller is told to contact support.
	ErrWindowClosed = errors.New("complaint window has closed")

	// ErrGatewayUnavailable is returned when the payment gateway transfer
	// call fails. The payout is downgraded to a manual record, never dropped.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrScoreNotFound is returned when a job has no quality score yet
	ErrScoreNotFound = errors.New("quality score not found")

	// ErrPayoutNotFound is returned when a payout cannot be found
	ErrPayoutNotFound = errors.New("payout not found")

	// ErrTransferNotPending is returned when acting on a transfer offer
	// that has already been accepted, declined, or expired
	ErrTransferNotPending = errors.New("transfer offer is not pending")

	// ErrPeriodNotFound is returned when a reporting period does not exist
	ErrPeriodNotFound = errors.New("payout period not found")
)

// InvariantViolation marks a state the system must never reach at runtime
// (weights not summing to 1.0, a duplicate payout reaching the database).
// It is asserted by tests and config validation, not handled as a
// recoverable path.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Msg
}

// NewInvariantViolation formats an InvariantViolation.
func NewInvariantViolation(format string, args ...any) error {
	return &InvariantViolation{Msg: fmt.Sprintf(format, args...)}
}
