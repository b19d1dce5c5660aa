// Package journal persists the per-session event trail and ledger
// snapshots to SQLite, so an interrupted walkthrough can be audited and
// resumed.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event types recorded in the journal.
const (
	EventScan         = "scan"
	EventToggle       = "toggle"
	EventRowCreated   = "row_created"
	EventPromptAnswer = "prompt_answer"
	EventRoomSwitch   = "room_switch"
	EventSave         = "save"
	EventViolation    = "violation"
)

// ErrSnapshotNotFound indicates no snapshot exists for the session.
var ErrSnapshotNotFound = errors.New("journal: snapshot not found")

// Event is a single journal entry.
type Event struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id"`
	RoomID      string         `json:"room_id"`
	DeviceID    string         `json:"device_id,omitempty"`
	EventType   string         `json:"event_type"`
	RawCode     string         `json:"raw_code,omitempty"`
	ResultState string         `json:"result_state,omitempty"`
	Detail      map[string]any `json:"detail,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Snapshot is the latest serialized ledger payload for a session.
type Snapshot struct {
	SessionID string    `json:"session_id"`
	RoomID    string    `json:"room_id"`
	Payload   string    `json:"payload"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter controls which journal events to return.
type Filter struct {
	SessionID string // optional: filter by session
	DeviceID  string // optional: filter by device
	EventType string // optional: filter by event type
	Limit     int    // default 50, max 200
	Offset    int    // pagination offset
}

// ListResult contains the paginated journal results.
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Repository defines journal persistence operations.
type Repository interface {
	Record(ctx context.Context, ev *Event) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	LoadSnapshot(ctx context.Context, sessionID string) (*Snapshot, error)
}

// SQLiteRepository stores journal events and snapshots in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new journal repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts a journal event. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Record(ctx context.Context, ev *Event) error {
	if ev.ID == "" {
		ev.ID = "evt-" + uuid.NewString()[:8]
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	var detailJSON *string
	if ev.Detail != nil {
		b, err := json.Marshal(ev.Detail)
		if err != nil {
			return fmt.Errorf("marshalling event detail: %w", err)
		}
		s := string(b)
		detailJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scan_events (id, session_id, room_id, device_id, event_type, raw_code, result_state, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SessionID, ev.RoomID,
		nullableString(ev.DeviceID), ev.EventType,
		nullableString(ev.RawCode), nullableString(ev.ResultState),
		detailJSON,
		ev.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting journal event: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns journal events matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.EventType != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, filter.EventType)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// WHERE is assembled from parameterised conditions, no user input
	// reaches the SQL string.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM scan_events %s", where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting journal events: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT id, session_id, room_id, device_id, event_type, raw_code, result_state, detail, created_at FROM scan_events %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var deviceID, rawCode, resultState, detailJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.RoomID,
			&deviceID, &ev.EventType, &rawCode, &resultState, &detailJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal event: %w", err)
		}

		if deviceID.Valid {
			ev.DeviceID = deviceID.String
		}
		if rawCode.Valid {
			ev.RawCode = rawCode.String
		}
		if resultState.Valid {
			ev.ResultState = resultState.String
		}
		if detailJSON.Valid && detailJSON.String != "" {
			var detail map[string]any
			if json.Unmarshal([]byte(detailJSON.String), &detail) == nil {
				ev.Detail = detail
			}
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing journal timestamp %q: %w", createdAt, err)
		}
		ev.CreatedAt = t

		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal events: %w", err)
	}

	if events == nil {
		events = []Event{}
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// SaveSnapshot upserts the serialized ledger payload for a session.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_snapshots (session_id, room_id, payload, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   room_id = excluded.room_id,
		   payload = excluded.payload,
		   updated_at = excluded.updated_at`,
		snap.SessionID, snap.RoomID, snap.Payload,
		snap.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving session snapshot: %w", err)
	}

	return nil
}

// LoadSnapshot returns the latest snapshot for a session, or
// ErrSnapshotNotFound when the session has never been persisted.
func (r *SQLiteRepository) LoadSnapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	var snap Snapshot
	var updatedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT session_id, room_id, payload, updated_at FROM session_snapshots WHERE session_id = ?`,
		sessionID,
	).Scan(&snap.SessionID, &snap.RoomID, &snap.Payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading session snapshot: %w", err)
	}

	t, err := time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot timestamp %q: %w", updatedAt, err)
	}
	snap.UpdatedAt = t

	return &snap, nil
}
