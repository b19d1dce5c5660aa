package reconcile

import (
	"encoding/json"
	"fmt"
)

// Ledger is the authoritative mapping of device id to reconciliation state
// for the room being inventorized, together with the working set of rows
// the operator sees.
//
// The ledger lives for one session: created when the walkthrough starts,
// pre-seeded with one Unknown entry per device on record, discarded when
// the session ends. Entries are upserted, never deleted; only the final
// per-key state matters.
//
// The ledger is owned by the session and mutated from its single worker
// goroutine; it is deliberately unsynchronized.
type Ledger struct {
	entries map[string]State
	rows    map[string]*Row
	order   []string // row ids in insertion order, for stable listing
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[string]State),
		rows:    make(map[string]*Row),
	}
}

// Seed inserts a row from the backend room snapshot (Unknown) or from a
// manual add (Added); either way the ledger entry starts as Unknown.
// Duplicate seeds are no-ops.
func (l *Ledger) Seed(row Row) error {
	if row.State != StateUnknown && row.State != StateAdded {
		return fmt.Errorf("%w: seed state %q for device %s", ErrInvalidState, row.State, row.DeviceID)
	}
	if _, exists := l.rows[row.DeviceID]; exists {
		return nil
	}
	r := row
	l.rows[r.DeviceID] = &r
	l.order = append(l.order, r.DeviceID)
	l.entries[r.DeviceID] = StateUnknown
	return nil
}

// CreateRow inserts a working-set row for a newly discovered device.
//
// The row starts in Unknown and gets an Unknown ledger entry: discovery
// alone never confirms a device as found, the operator must do that with
// a separate explicit action. If a row for this device already exists the
// call is a no-op (scanning the same "add" twice must not duplicate the
// row or reset its state) and returns false.
func (l *Ledger) CreateRow(row Row) bool {
	if _, exists := l.rows[row.DeviceID]; exists {
		return false
	}
	r := row
	r.State = StateUnknown
	l.rows[r.DeviceID] = &r
	l.order = append(l.order, r.DeviceID)
	l.entries[r.DeviceID] = StateUnknown
	return true
}

// Row returns the working-set row for a device, or nil if none exists.
func (l *Ledger) Row(deviceID string) *Row {
	return l.rows[deviceID]
}

// Rows returns the working set in insertion order.
func (l *Ledger) Rows() []Row {
	out := make([]Row, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.rows[id])
	}
	return out
}

// Len returns the number of ledger entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Get returns the recorded state for a device id.
func (l *Ledger) Get(deviceID string) (State, bool) {
	s, ok := l.entries[deviceID]
	return s, ok
}

// Upsert overwrites or inserts the ledger entry for a device.
//
// Only the operator-facing states (Unknown, Found, NotFound) are valid:
// Added and FoundUnexpectedElsewhere are transient row states that must
// have been superseded by a transition before anything is recorded.
// Passing one of them is ErrTransientState; passing anything outside the
// enumeration is ErrInvariantViolation.
func (l *Ledger) Upsert(deviceID string, state State) error {
	if !state.Valid() {
		return fmt.Errorf("%w: upsert state %q for device %s", ErrInvariantViolation, state, deviceID)
	}
	if !state.Recordable() {
		return fmt.Errorf("%w: %q for device %s", ErrTransientState, state, deviceID)
	}
	l.entries[deviceID] = state
	return nil
}

// Serialize produces the submittable payload: a JSON object mapping device
// id to state name. Key order is not guaranteed and does not matter.
//
// The session calls this synchronously after every accepted upsert so an
// out-of-band submission always reflects the latest known state.
func (l *Ledger) Serialize() ([]byte, error) {
	payload, err := json.Marshal(l.entries)
	if err != nil {
		return nil, fmt.Errorf("serializing ledger: %w", err)
	}
	return payload, nil
}

// Deserialize parses a serialized ledger payload back into an id-to-state
// mapping. Unrecognised or transient state names are rejected.
func Deserialize(payload []byte) (map[string]State, error) {
	var raw map[string]string
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parsing ledger payload: %w", err)
	}

	out := make(map[string]State, len(raw))
	for id, name := range raw {
		s, err := ParseState(name)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", id, err)
		}
		if !s.Recordable() {
			return nil, fmt.Errorf("entry %s: %w: %q", id, ErrTransientState, name)
		}
		out[id] = s
	}
	return out, nil
}

// Snapshot returns a copy of the current id-to-state mapping.
func (l *Ledger) Snapshot() map[string]State {
	out := make(map[string]State, len(l.entries))
	for id, s := range l.entries {
		out[id] = s
	}
	return out
}
