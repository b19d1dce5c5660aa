package reconcile

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestLedger_Seed(t *testing.T) {
	l := NewLedger()

	t.Run("seeds unknown row with unknown entry", func(t *testing.T) {
		if err := l.Seed(Row{DeviceID: "dev-1", State: StateUnknown, Inventorized: true}); err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		if s, ok := l.Get("dev-1"); !ok || s != StateUnknown {
			t.Errorf("Get() = (%q, %v), want (Unknown, true)", s, ok)
		}
	})

	t.Run("seeds added row with unknown entry", func(t *testing.T) {
		if err := l.Seed(Row{DeviceID: "dev-2", State: StateAdded}); err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		if l.Row("dev-2").State != StateAdded {
			t.Errorf("row state = %q, want Added", l.Row("dev-2").State)
		}
		if s, _ := l.Get("dev-2"); s != StateUnknown {
			t.Errorf("ledger entry = %q, want Unknown", s)
		}
	})

	t.Run("rejects non-seed states", func(t *testing.T) {
		err := l.Seed(Row{DeviceID: "dev-3", State: StateFound})
		if !errors.Is(err, ErrInvalidState) {
			t.Errorf("Seed() error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("duplicate seed is a no-op", func(t *testing.T) {
		before := l.Row("dev-1").Inventorized
		if err := l.Seed(Row{DeviceID: "dev-1", State: StateUnknown}); err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		if l.Row("dev-1").Inventorized != before {
			t.Error("duplicate Seed() reset row flags")
		}
	})
}

func TestLedger_CreateRow(t *testing.T) {
	l := NewLedger()

	created := l.CreateRow(Row{DeviceID: "dev-1", State: StateFound, EDVID: "EDV-100"})
	if !created {
		t.Fatal("CreateRow() = false, want true")
	}

	// Creation never yields Found, regardless of what the caller passed
	if l.Row("dev-1").State != StateUnknown {
		t.Errorf("row state = %q, want Unknown", l.Row("dev-1").State)
	}
	if s, ok := l.Get("dev-1"); !ok || s != StateUnknown {
		t.Errorf("ledger entry = (%q, %v), want (Unknown, true)", s, ok)
	}

	t.Run("duplicate creation is a no-op", func(t *testing.T) {
		l.Row("dev-1").State = StateFound
		if l.CreateRow(Row{DeviceID: "dev-1"}) {
			t.Error("duplicate CreateRow() = true, want false")
		}
		if l.Row("dev-1").State != StateFound {
			t.Errorf("duplicate CreateRow() reset state to %q", l.Row("dev-1").State)
		}
		if len(l.Rows()) != 1 {
			t.Errorf("rows = %d, want 1", len(l.Rows()))
		}
	})
}

func TestLedger_Upsert(t *testing.T) {
	l := NewLedger()
	l.CreateRow(Row{DeviceID: "dev-1"})

	t.Run("accepts recordable states", func(t *testing.T) {
		for _, s := range []State{StateFound, StateNotFound, StateUnknown} {
			if err := l.Upsert("dev-1", s); err != nil {
				t.Errorf("Upsert(%q) error = %v", s, err)
			}
			if got, _ := l.Get("dev-1"); got != s {
				t.Errorf("Get() = %q, want %q", got, s)
			}
		}
	})

	t.Run("rejects transient states", func(t *testing.T) {
		for _, s := range []State{StateAdded, StateFoundUnexpected} {
			if err := l.Upsert("dev-1", s); !errors.Is(err, ErrTransientState) {
				t.Errorf("Upsert(%q) error = %v, want ErrTransientState", s, err)
			}
		}
	})

	t.Run("rejects unknown state values", func(t *testing.T) {
		err := l.Upsert("dev-1", State("table-success"))
		if !errors.Is(err, ErrInvariantViolation) {
			t.Errorf("Upsert() error = %v, want ErrInvariantViolation", err)
		}
	})
}

func TestLedger_SerializeRoundTrip(t *testing.T) {
	l := NewLedger()
	l.CreateRow(Row{DeviceID: "aaa"})
	l.CreateRow(Row{DeviceID: "bbb"})
	l.CreateRow(Row{DeviceID: "ccc"})
	if err := l.Upsert("aaa", StateFound); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := l.Upsert("bbb", StateNotFound); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	payload, err := l.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	// The payload is a flat JSON object of id -> state name
	var asJSON map[string]string
	if err := json.Unmarshal(payload, &asJSON); err != nil {
		t.Fatalf("payload is not a JSON object: %v", err)
	}
	if asJSON["ccc"] != "Unknown" {
		t.Errorf("payload[ccc] = %q, want %q", asJSON["ccc"], "Unknown")
	}

	got, err := Deserialize(payload)
	if err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	want := map[string]State{"aaa": StateFound, "bbb": StateNotFound, "ccc": StateUnknown}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip = %v, want %v", got, want)
	}
}

func TestDeserialize_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "{{"},
		{name: "unknown state name", payload: `{"dev-1": "Misplaced"}`},
		{name: "transient state name", payload: `{"dev-1": "Added"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Deserialize([]byte(tt.payload)); err == nil {
				t.Errorf("Deserialize(%q) expected error, got nil", tt.payload)
			}
		})
	}
}

func TestLedger_RowsOrder(t *testing.T) {
	l := NewLedger()
	for _, id := range []string{"c", "a", "b"} {
		l.CreateRow(Row{DeviceID: id})
	}

	rows := l.Rows()
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	for i, want := range []string{"c", "a", "b"} {
		if rows[i].DeviceID != want {
			t.Errorf("rows[%d] = %q, want %q", i, rows[i].DeviceID, want)
		}
	}
}
