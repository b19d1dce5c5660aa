package reconcile

import "fmt"

// State is the reconciliation state of a single device row.
//
// Exactly one state applies per device at any time. Unknown, Found and
// NotFound are recordable: they appear in the serialized ledger. Added and
// FoundUnexpectedElsewhere are transient row states that a state-machine
// transition supersedes before anything is recorded.
type State string

// State constants.
const (
	// StateUnknown is the starting state: the device is on record for the
	// room and has not been seen yet this session.
	StateUnknown State = "Unknown"

	// StateFound marks a device physically confirmed in the room.
	StateFound State = "Found"

	// StateNotFound marks a device the operator could not locate.
	StateNotFound State = "NotFound"

	// StateAdded marks a row for a device newly attached to the room and
	// not yet confirmed by the operator.
	StateAdded State = "Added"

	// StateFoundUnexpected marks a device that was found here although
	// another room still claims it. Terminal for the session.
	StateFoundUnexpected State = "FoundUnexpectedElsewhere"
)

// AllStates returns all valid state values.
func AllStates() []State {
	return []State{
		StateUnknown, StateFound, StateNotFound,
		StateAdded, StateFoundUnexpected,
	}
}

// Valid reports whether s is one of the five defined states.
func (s State) Valid() bool {
	switch s {
	case StateUnknown, StateFound, StateNotFound, StateAdded, StateFoundUnexpected:
		return true
	default:
		return false
	}
}

// Recordable reports whether s may be stored in the ledger.
// Only the operator-facing states qualify; Added and
// FoundUnexpectedElsewhere are transient.
func (s State) Recordable() bool {
	switch s {
	case StateUnknown, StateFound, StateNotFound:
		return true
	default:
		return false
	}
}

// ParseState converts a state name into a State.
// Returns ErrInvalidState for unrecognised names.
func ParseState(name string) (State, error) {
	s := State(name)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, name)
	}
	return s, nil
}

// Row is one entry in the session's working set: a device visible to the
// operator together with its current reconciliation state.
//
// Rows are owned by the Ledger and mutated only through the Machine; the
// session processes one event at a time, so no locking is involved.
type Row struct {
	// DeviceID is the device UUID.
	DeviceID string `json:"device_id"`

	// State is the current reconciliation state.
	State State `json:"state"`

	// Inventorized records whether the device was already committed as
	// inventorized in a previous walkthrough. Clearing such a device back
	// to Unknown is destructive and requires confirmation.
	Inventorized bool `json:"inventorized"`

	// Display metadata resolved from the backend.
	EDVID        string `json:"edv_id"`
	Manufacturer string `json:"manufacturer"`
	Series       string `json:"series"`
	RecordType   string `json:"record_type"`
	Room         string `json:"room"`
}
