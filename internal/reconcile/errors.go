package reconcile

import "errors"

// Domain errors for the reconcile package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, reconcile.ErrInvariantViolation) {
//	    // alert the operator, refuse the transition
//	}
var (
	// ErrInvariantViolation is returned when a trigger reaches a state
	// combination outside the defined transition table. This indicates a
	// bug rather than expected input; the operator is told to contact
	// support and the transition is refused.
	ErrInvariantViolation = errors.New("reconcile: invariant violation")

	// ErrTransientState is returned when a transient row state (Added,
	// FoundUnexpectedElsewhere) is passed to Ledger.Upsert. Those states
	// never reach the serialized ledger.
	ErrTransientState = errors.New("reconcile: transient state not recordable")

	// ErrInvalidState is returned when a state name is not recognised.
	ErrInvalidState = errors.New("reconcile: invalid state")
)
