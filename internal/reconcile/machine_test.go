package reconcile

import (
	"context"
	"errors"
	"testing"
)

// staticConfirmer answers every removal prompt the same way.
type staticConfirmer struct {
	answer bool
	err    error
	calls  int
}

func (c *staticConfirmer) ConfirmRemoval(_ context.Context, _ string) (bool, error) {
	c.calls++
	return c.answer, c.err
}

func TestMachine_Toggle(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		start        State
		inventorized bool
		confirm      bool
		want         State
		wantConfirms int
	}{
		{name: "added becomes found unexpected", start: StateAdded, want: StateFoundUnexpected},
		{name: "unknown becomes found", start: StateUnknown, want: StateFound},
		{name: "found becomes not found", start: StateFound, want: StateNotFound},
		{
			name:  "not found clears to unknown without prompt",
			start: StateNotFound,
			want:  StateUnknown,
		},
		{
			name:         "inventorized not found clears after confirmation",
			start:        StateNotFound,
			inventorized: true,
			confirm:      true,
			want:         StateUnknown,
			wantConfirms: 1,
		},
		{
			name:         "inventorized not found reverts to found on decline",
			start:        StateNotFound,
			inventorized: true,
			confirm:      false,
			want:         StateFound,
			wantConfirms: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confirmer := &staticConfirmer{answer: tt.confirm}
			m := NewMachine(confirmer)
			row := &Row{DeviceID: "dev-1", State: tt.start, Inventorized: tt.inventorized}

			got, err := m.Toggle(ctx, row)
			if err != nil {
				t.Fatalf("Toggle() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Toggle() = %q, want %q", got, tt.want)
			}
			if row.State != tt.want {
				t.Errorf("row.State = %q, want %q", row.State, tt.want)
			}
			if confirmer.calls != tt.wantConfirms {
				t.Errorf("confirmer calls = %d, want %d", confirmer.calls, tt.wantConfirms)
			}
		})
	}
}

func TestMachine_Toggle_InvariantViolation(t *testing.T) {
	ctx := context.Background()
	m := NewMachine(&staticConfirmer{})

	t.Run("found unexpected is terminal", func(t *testing.T) {
		row := &Row{DeviceID: "dev-1", State: StateFoundUnexpected}
		_, err := m.Toggle(ctx, row)
		if !errors.Is(err, ErrInvariantViolation) {
			t.Errorf("Toggle() error = %v, want ErrInvariantViolation", err)
		}
		if row.State != StateFoundUnexpected {
			t.Errorf("row.State changed to %q on refused transition", row.State)
		}
	})

	t.Run("corrupted state refused", func(t *testing.T) {
		row := &Row{DeviceID: "dev-1", State: State("dev_state_bogus")}
		_, err := m.Toggle(ctx, row)
		if !errors.Is(err, ErrInvariantViolation) {
			t.Errorf("Toggle() error = %v, want ErrInvariantViolation", err)
		}
	})
}

func TestMachine_Toggle_ConfirmerError(t *testing.T) {
	ctx := context.Background()
	wantErr := errors.New("prompt abandoned")
	m := NewMachine(&staticConfirmer{err: wantErr})
	row := &Row{DeviceID: "dev-1", State: StateNotFound, Inventorized: true}

	_, err := m.Toggle(ctx, row)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Toggle() error = %v, want wrapped %v", err, wantErr)
	}
	if row.State != StateNotFound {
		t.Errorf("row.State = %q, want unchanged NotFound", row.State)
	}
}

func TestMachine_Scan(t *testing.T) {
	m := NewMachine(&staticConfirmer{})

	t.Run("unknown advances to found", func(t *testing.T) {
		row := &Row{DeviceID: "dev-1", State: StateUnknown}
		got, changed := m.Scan(row)
		if got != StateFound || !changed {
			t.Errorf("Scan() = (%q, %v), want (Found, true)", got, changed)
		}
	})

	t.Run("rescan of found is idempotent", func(t *testing.T) {
		row := &Row{DeviceID: "dev-1", State: StateFound}
		got, changed := m.Scan(row)
		if got != StateFound || changed {
			t.Errorf("Scan() = (%q, %v), want (Found, false)", got, changed)
		}
	})

	t.Run("scan of not found is ignored", func(t *testing.T) {
		row := &Row{DeviceID: "dev-1", State: StateNotFound}
		got, changed := m.Scan(row)
		if got != StateNotFound || changed {
			t.Errorf("Scan() = (%q, %v), want (NotFound, false)", got, changed)
		}
	})

	t.Run("scan of added is ignored", func(t *testing.T) {
		row := &Row{DeviceID: "dev-1", State: StateAdded}
		got, changed := m.Scan(row)
		if got != StateAdded || changed {
			t.Errorf("Scan() = (%q, %v), want (Added, false)", got, changed)
		}
	})
}

func TestParseState(t *testing.T) {
	for _, s := range AllStates() {
		got, err := ParseState(string(s))
		if err != nil || got != s {
			t.Errorf("ParseState(%q) = (%q, %v), want (%q, nil)", s, got, err, s)
		}
	}

	if _, err := ParseState("dev_state_found"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("ParseState error = %v, want ErrInvalidState", err)
	}
}
