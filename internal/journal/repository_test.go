package journal

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
	CREATE TABLE scan_events (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		room_id TEXT NOT NULL,
		device_id TEXT,
		event_type TEXT NOT NULL,
		raw_code TEXT,
		result_state TEXT,
		detail TEXT,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	) STRICT;
	CREATE TABLE session_snapshots (
		session_id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	) STRICT;`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating test schema: %v", err)
	}

	return db
}

func TestRecordAndList(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	events := []*Event{
		{SessionID: "sess-1", RoomID: "room-1", DeviceID: "dev-1", EventType: EventScan, RawCode: "DLCDBDdev-1", ResultState: "Found", CreatedAt: base},
		{SessionID: "sess-1", RoomID: "room-1", DeviceID: "dev-1", EventType: EventToggle, ResultState: "NotFound", CreatedAt: base.Add(time.Second)},
		{SessionID: "sess-1", RoomID: "room-1", EventType: EventViolation, Detail: map[string]any{"state": "bogus"}, CreatedAt: base.Add(2 * time.Second)},
		{SessionID: "sess-2", RoomID: "room-2", DeviceID: "dev-2", EventType: EventScan, ResultState: "Found", CreatedAt: base.Add(3 * time.Second)},
	}
	for _, ev := range events {
		if err := repo.Record(ctx, ev); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if ev.ID == "" {
			t.Error("Record() should generate an id")
		}
	}

	t.Run("filter by session", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{SessionID: "sess-1"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Total != 3 {
			t.Errorf("Total = %d, want 3", result.Total)
		}
		// Most recent first.
		if result.Events[0].EventType != EventViolation {
			t.Errorf("first event = %q, want %q", result.Events[0].EventType, EventViolation)
		}
		if result.Events[0].Detail["state"] != "bogus" {
			t.Errorf("detail = %v, want state bogus", result.Events[0].Detail)
		}
	})

	t.Run("filter by device and type", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{DeviceID: "dev-1", EventType: EventScan})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Total != 1 {
			t.Fatalf("Total = %d, want 1", result.Total)
		}
		if result.Events[0].RawCode != "DLCDBDdev-1" {
			t.Errorf("RawCode = %q, want %q", result.Events[0].RawCode, "DLCDBDdev-1")
		}
	})

	t.Run("pagination clamps and offsets", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Total != 4 {
			t.Errorf("Total = %d, want 4", result.Total)
		}
		if len(result.Events) != 2 {
			t.Errorf("page size = %d, want 2", len(result.Events))
		}
	})

	t.Run("no matches returns empty slice", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{SessionID: "sess-none"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Events == nil || len(result.Events) != 0 {
			t.Errorf("Events = %v, want empty non-nil slice", result.Events)
		}
	})
}

func TestSnapshots(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	t.Run("missing snapshot", func(t *testing.T) {
		_, err := repo.LoadSnapshot(ctx, "sess-1")
		if !errors.Is(err, ErrSnapshotNotFound) {
			t.Errorf("LoadSnapshot() error = %v, want ErrSnapshotNotFound", err)
		}
	})

	t.Run("save and load", func(t *testing.T) {
		err := repo.SaveSnapshot(ctx, &Snapshot{
			SessionID: "sess-1",
			RoomID:    "room-1",
			Payload:   `{"dev-1":"Found"}`,
		})
		if err != nil {
			t.Fatalf("SaveSnapshot() error = %v", err)
		}

		snap, err := repo.LoadSnapshot(ctx, "sess-1")
		if err != nil {
			t.Fatalf("LoadSnapshot() error = %v", err)
		}
		if snap.Payload != `{"dev-1":"Found"}` {
			t.Errorf("Payload = %q", snap.Payload)
		}
		if snap.UpdatedAt.IsZero() {
			t.Error("UpdatedAt should be set")
		}
	})

	t.Run("upsert replaces payload", func(t *testing.T) {
		err := repo.SaveSnapshot(ctx, &Snapshot{
			SessionID: "sess-1",
			RoomID:    "room-1",
			Payload:   `{"dev-1":"NotFound"}`,
		})
		if err != nil {
			t.Fatalf("SaveSnapshot() error = %v", err)
		}

		snap, err := repo.LoadSnapshot(ctx, "sess-1")
		if err != nil {
			t.Fatalf("LoadSnapshot() error = %v", err)
		}
		if snap.Payload != `{"dev-1":"NotFound"}` {
			t.Errorf("Payload = %q, want updated payload", snap.Payload)
		}
	})
}
