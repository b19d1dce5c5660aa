package reconcile

import (
	"context"
	"fmt"
)

// Logger defines the logging interface used by the Machine and Ledger.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Confirmer answers the destructive-removal prompt: clearing a device that
// was already committed as inventorized back to Unknown removes its
// inventorized status on save.
//
// Confirm blocks until the operator answers (or ctx is cancelled).
type Confirmer interface {
	ConfirmRemoval(ctx context.Context, deviceID string) (bool, error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, deviceID string) (bool, error)

// ConfirmRemoval calls f.
func (f ConfirmerFunc) ConfirmRemoval(ctx context.Context, deviceID string) (bool, error) {
	return f(ctx, deviceID)
}

// Machine owns the per-row transition rules.
//
// The transition table:
//
//	Added     --toggle--> FoundUnexpectedElsewhere (terminal for session)
//	Unknown   --toggle--> Found
//	Unknown   --scan----> Found (the fast path)
//	Found     --toggle--> NotFound
//	NotFound  --toggle--> Unknown (confirmation required if the row is
//	                      flagged inventorized; declining yields Found)
//
// Anything else is refused with ErrInvariantViolation: a toggle arriving
// in an undefined state means the working set is corrupt, and silently
// guessing would corrupt the ledger with it.
type Machine struct {
	confirmer Confirmer
	logger    Logger
}

// NewMachine creates a Machine using the given confirmer for the
// destructive-removal prompt.
func NewMachine(confirmer Confirmer) *Machine {
	return &Machine{
		confirmer: confirmer,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the machine.
func (m *Machine) SetLogger(logger Logger) {
	m.logger = logger
}

// Toggle applies the manual state button to row and returns the new state.
// The row is updated in place only when the transition is defined.
func (m *Machine) Toggle(ctx context.Context, row *Row) (State, error) {
	switch row.State {
	case StateAdded:
		row.State = StateFoundUnexpected

	case StateUnknown:
		row.State = StateFound

	case StateFound:
		row.State = StateNotFound

	case StateNotFound:
		next, err := m.clearNotFound(ctx, row)
		if err != nil {
			return row.State, err
		}
		row.State = next

	default:
		// FoundUnexpectedElsewhere has no outgoing toggle, and any state
		// outside the enumeration means the row was corrupted.
		m.logger.Error("toggle in undefined state",
			"device_id", row.DeviceID,
			"state", row.State,
		)
		return row.State, fmt.Errorf("%w: toggle from state %q for device %s",
			ErrInvariantViolation, row.State, row.DeviceID)
	}

	m.logger.Debug("toggle applied", "device_id", row.DeviceID, "state", row.State)
	return row.State, nil
}

// clearNotFound resolves the NotFound toggle. Rows never committed as
// inventorized clear straight back to Unknown. Rows already inventorized
// need the operator to confirm the removal; declining reverts the row to
// Found rather than leaving it NotFound.
func (m *Machine) clearNotFound(ctx context.Context, row *Row) (State, error) {
	if !row.Inventorized {
		return StateUnknown, nil
	}

	ok, err := m.confirmer.ConfirmRemoval(ctx, row.DeviceID)
	if err != nil {
		return "", fmt.Errorf("confirming removal for device %s: %w", row.DeviceID, err)
	}
	if !ok {
		m.logger.Info("removal declined, reverting to found", "device_id", row.DeviceID)
		return StateFound, nil
	}
	return StateUnknown, nil
}

// Scan applies a scan of the row's own code. Returns the resulting state
// and whether anything changed.
//
// Only Unknown advances (to Found); re-scanning a Found row is a no-op
// and must not fall into the toggle cycle. Scans landing on any
// other state are ignored: the operator resolves those rows manually.
func (m *Machine) Scan(row *Row) (State, bool) {
	switch row.State {
	case StateUnknown:
		row.State = StateFound
		m.logger.Debug("scan fast path", "device_id", row.DeviceID)
		return row.State, true
	case StateFound:
		return row.State, false
	default:
		m.logger.Debug("scan ignored in current state",
			"device_id", row.DeviceID,
			"state", row.State,
		)
		return row.State, false
	}
}
