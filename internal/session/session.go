package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/dlcdb/inventory-core/internal/device"
	"github.com/dlcdb/inventory-core/internal/journal"
	"github.com/dlcdb/inventory-core/internal/qrcode"
	"github.com/dlcdb/inventory-core/internal/reconcile"
	"github.com/dlcdb/inventory-core/internal/room"
)

// defaultScanQueueSize buffers bursts from handheld scanners; a scanner
// emits at most a few codes per second, so a small queue is plenty.
const defaultScanQueueSize = 64

// DeviceSource lists the devices on record for a room. Implemented by
// the device client.
type DeviceSource interface {
	ListByRoom(ctx context.Context, roomID string) ([]device.RoomDevice, error)
}

// Saver submits the final reconciliation payload. Implemented by the
// room client.
type Saver interface {
	SaveInventory(ctx context.Context, roomPK int64, payload []byte) error
}

// Broadcaster pushes live updates to connected UIs. Implemented by the
// websocket hub.
type Broadcaster interface {
	RowChanged(row reconcile.Row)
	Navigate(target room.Room)
}

type noopBroadcaster struct{}

func (noopBroadcaster) RowChanged(reconcile.Row) {}
func (noopBroadcaster) Navigate(room.Room)       {}

// Metrics records scan throughput counters. Implemented by the InfluxDB
// writer; a no-op stands in when metrics are disabled.
type Metrics interface {
	ScanProcessed(kind string, accepted bool)
	StateChanged(state string)
}

type noopMetrics struct{}

func (noopMetrics) ScanProcessed(string, bool) {}
func (noopMetrics) StateChanged(string)        {}

// Session drives one room walkthrough: it owns the ledger and working
// set, serializes every mutation through a single worker goroutine, and
// journals each accepted change.
//
// Scans arrive asynchronously via EnqueueScan (from the websocket feed
// or MQTT); manual operations (Toggle, AddDevice, Save) are synchronous
// and flow through the same worker, so ordering between a scan and a
// toggle is exactly their arrival order at the queue.
type Session struct {
	id   string
	room room.Room

	parser    *qrcode.Parser
	ledger    *reconcile.Ledger
	machine   *reconcile.Machine
	directory *device.Directory
	switcher  *room.Switcher
	journal   journal.Repository
	devices   DeviceSource
	saver     Saver

	notifier    Notifier
	broadcaster Broadcaster
	metrics     Metrics
	logger      Logger

	// work carries both queued scans and synchronous requests so that
	// ordering between them is exactly arrival order.
	work chan func()
	done chan struct{}
	ctx  context.Context
}

// Options configures optional session collaborators. Zero values fall
// back to no-ops.
type Options struct {
	Notifier    Notifier
	Broadcaster Broadcaster
	Metrics     Metrics
	Logger      Logger
	QueueSize   int
}

// New assembles a session for one room.
func New(
	id string,
	rm room.Room,
	parser *qrcode.Parser,
	confirmer reconcile.Confirmer,
	switcher *room.Switcher,
	directory *device.Directory,
	devices DeviceSource,
	saver Saver,
	repo journal.Repository,
	opts Options,
) *Session {
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	if opts.Broadcaster == nil {
		opts.Broadcaster = noopBroadcaster{}
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultScanQueueSize
	}

	machine := reconcile.NewMachine(confirmer)
	machine.SetLogger(opts.Logger)

	return &Session{
		id:          id,
		room:        rm,
		parser:      parser,
		ledger:      reconcile.NewLedger(),
		machine:     machine,
		directory:   directory,
		switcher:    switcher,
		journal:     repo,
		devices:     devices,
		saver:       saver,
		notifier:    opts.Notifier,
		broadcaster: opts.Broadcaster,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		work:        make(chan func(), opts.QueueSize),
		done:        make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Room returns the room being inventorized.
func (s *Session) Room() room.Room { return s.room }

// Start seeds the working set from the backend, restores any persisted
// snapshot for this session, and launches the worker. The context is
// retained as the base context for scan processing.
func (s *Session) Start(ctx context.Context) error {
	if err := s.seed(ctx); err != nil {
		return err
	}
	if err := s.restore(ctx); err != nil {
		return err
	}

	s.ctx = ctx
	go s.run()
	return nil
}

// seed pre-populates one Unknown row per device on the room's record.
func (s *Session) seed(ctx context.Context) error {
	listed, err := s.devices.ListByRoom(ctx, s.room.ID)
	if err != nil {
		return fmt.Errorf("seeding session %s: %w", s.id, err)
	}

	for _, d := range listed {
		rec := d.Record
		s.directory.Prime(&rec)
		if err := s.ledger.Seed(reconcile.Row{
			DeviceID:     rec.ID,
			State:        reconcile.StateUnknown,
			Inventorized: d.AlreadyInventorized,
			EDVID:        rec.EDVID,
			Manufacturer: rec.Manufacturer,
			Series:       rec.Series,
			RecordType:   rec.RecordType,
			Room:         rec.Room,
		}); err != nil {
			return fmt.Errorf("seeding session %s: %w", s.id, err)
		}
	}

	s.logger.Info("session seeded",
		"session_id", s.id,
		"room", s.room.Number,
		"devices", len(listed),
	)
	return nil
}

// restore replays a persisted snapshot so an interrupted walkthrough
// picks up where it left off. Missing snapshots are not an error.
func (s *Session) restore(ctx context.Context) error {
	snap, err := s.journal.LoadSnapshot(ctx, s.id)
	if errors.Is(err, journal.ErrSnapshotNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restoring session %s: %w", s.id, err)
	}

	states, err := reconcile.Deserialize([]byte(snap.Payload))
	if err != nil {
		return fmt.Errorf("restoring session %s: %w", s.id, err)
	}

	for id, state := range states {
		row := s.ledger.Row(id)
		if row == nil {
			// Device discovered by scan in the previous run but not on
			// the room's record. Re-resolve it to rebuild the row.
			rec, err := s.directory.Resolve(ctx, id)
			if err != nil {
				s.logger.Warn("skipping unrestorable snapshot entry",
					"session_id", s.id, "device_id", id, "error", err)
				continue
			}
			s.ledger.CreateRow(rowFromRecord(rec))
			row = s.ledger.Row(id)
		}
		row.State = state
		if err := s.ledger.Upsert(id, state); err != nil {
			return fmt.Errorf("restoring session %s: %w", s.id, err)
		}
	}

	s.logger.Info("session restored from snapshot",
		"session_id", s.id,
		"entries", len(states),
	)
	return nil
}

// run is the worker loop. All ledger mutation happens here.
func (s *Session) run() {
	for {
		select {
		case fn := <-s.work:
			fn()
		case <-s.done:
			return
		}
	}
}

// Close stops the worker. Pending queued scans are dropped.
func (s *Session) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// EnqueueScan queues a raw scanned string for processing. Never blocks;
// a saturated queue drops the scan and returns ErrQueueFull so the feed
// can surface the drop.
func (s *Session) EnqueueScan(raw string) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	select {
	case s.work <- func() { s.handleScan(raw) }:
		return nil
	default:
		s.logger.Warn("scan dropped, queue full", "session_id", s.id)
		return ErrQueueFull
	}
}

// do runs fn on the worker goroutine and waits for it to finish.
func (s *Session) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		fn()
		close(finished)
	}

	select {
	case s.work <- wrapped:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Rows returns the working set in insertion order.
func (s *Session) Rows(ctx context.Context) ([]reconcile.Row, error) {
	var rows []reconcile.Row
	err := s.do(ctx, func() {
		rows = s.ledger.Rows()
	})
	return rows, err
}

// Payload returns the current serialized ledger.
func (s *Session) Payload(ctx context.Context) ([]byte, error) {
	var (
		payload []byte
		serr    error
	)
	err := s.do(ctx, func() {
		payload, serr = s.ledger.Serialize()
	})
	if err != nil {
		return nil, err
	}
	return payload, serr
}

// Toggle applies the manual state button for a device and returns the
// updated row.
func (s *Session) Toggle(ctx context.Context, deviceID string) (reconcile.Row, error) {
	var (
		row  reconcile.Row
		terr error
	)
	err := s.do(ctx, func() {
		row, terr = s.toggle(ctx, deviceID)
	})
	if err != nil {
		return reconcile.Row{}, err
	}
	return row, terr
}

func (s *Session) toggle(ctx context.Context, deviceID string) (reconcile.Row, error) {
	row := s.ledger.Row(deviceID)
	if row == nil {
		return reconcile.Row{}, fmt.Errorf("%w: %s", ErrUnknownRow, deviceID)
	}

	state, err := s.machine.Toggle(ctx, row)
	if err != nil {
		if errors.Is(err, reconcile.ErrInvariantViolation) {
			s.reportViolation(deviceID, string(row.State), err)
		}
		return *row, err
	}

	// FoundUnexpectedElsewhere is a row-only marker: the ledger keeps
	// the entry the row had before, so the save payload never carries a
	// transient state.
	if state.Recordable() {
		if err := s.ledger.Upsert(deviceID, state); err != nil {
			s.reportViolation(deviceID, string(state), err)
			return *row, err
		}
	}

	s.record(&journal.Event{
		DeviceID:    deviceID,
		EventType:   journal.EventToggle,
		ResultState: string(state),
	})
	s.persistSnapshot()
	s.metrics.StateChanged(string(state))
	s.broadcaster.RowChanged(*row)
	return *row, nil
}

// AddDevice inserts a device spotted in the room but absent from its
// record. The row starts in Added; toggling it marks the device as
// found unexpectedly elsewhere.
func (s *Session) AddDevice(ctx context.Context, deviceID string) (reconcile.Row, error) {
	var (
		row  reconcile.Row
		aerr error
	)
	err := s.do(ctx, func() {
		row, aerr = s.addDevice(ctx, deviceID)
	})
	if err != nil {
		return reconcile.Row{}, err
	}
	return row, aerr
}

func (s *Session) addDevice(ctx context.Context, deviceID string) (reconcile.Row, error) {
	if existing := s.ledger.Row(deviceID); existing != nil {
		return *existing, nil
	}

	rec, err := s.directory.Resolve(ctx, deviceID)
	if err != nil {
		s.notifier.Notify(LevelError, fmt.Sprintf("Device %s could not be resolved.", deviceID))
		return reconcile.Row{}, err
	}

	r := rowFromRecord(rec)
	r.State = reconcile.StateAdded
	if err := s.ledger.Seed(r); err != nil {
		return reconcile.Row{}, err
	}

	row := s.ledger.Row(deviceID)
	s.record(&journal.Event{
		DeviceID:    deviceID,
		EventType:   journal.EventRowCreated,
		ResultState: string(row.State),
	})
	s.persistSnapshot()
	s.broadcaster.RowChanged(*row)
	return *row, nil
}

// Save submits the serialized ledger to the backend and journals the
// submission.
func (s *Session) Save(ctx context.Context) error {
	var serr error
	err := s.do(ctx, func() {
		serr = s.save(ctx)
	})
	if err != nil {
		return err
	}
	return serr
}

func (s *Session) save(ctx context.Context) error {
	payload, err := s.ledger.Serialize()
	if err != nil {
		return err
	}

	if err := s.saver.SaveInventory(ctx, s.room.PK, payload); err != nil {
		s.notifier.Notify(LevelError, "Saving the inventory failed. Your progress is kept locally.")
		return err
	}

	s.record(&journal.Event{
		EventType: journal.EventSave,
		Detail:    map[string]any{"entries": s.ledger.Len()},
	})
	s.notifier.Notify(LevelInfo, fmt.Sprintf("Inventory for room %s saved.", s.room.Number))
	s.logger.Info("inventory saved", "session_id", s.id, "room", s.room.Number)
	return nil
}

// handleScan processes one raw scanned string on the worker goroutine.
func (s *Session) handleScan(raw string) {
	code, err := s.parser.Parse(raw)
	if err != nil {
		// Misreads happen constantly with handheld scanners. Log and
		// move on, the operator just rescans.
		s.logger.Debug("unparseable scan", "session_id", s.id, "raw_len", len(raw))
		s.metrics.ScanProcessed("invalid", false)
		return
	}

	switch code.Kind {
	case qrcode.KindRoom:
		s.handleRoomScan(code)
	case qrcode.KindDevice:
		s.handleDeviceScan(code, raw)
	}
}

// handleRoomScan offers to navigate to the scanned room.
func (s *Session) handleRoomScan(code qrcode.Code) {
	target, err := s.switcher.Switch(s.ctx, s.room.ID, code.ID)
	if err != nil {
		if errors.Is(err, room.ErrSwitchDeclined) {
			s.logger.Info("room switch declined", "session_id", s.id, "target", code.ID)
			s.metrics.ScanProcessed("room", false)
			return
		}
		s.notifier.Notify(LevelError, fmt.Sprintf("Room %s could not be resolved.", code.ID))
		s.logger.Error("room switch failed", "session_id", s.id, "target", code.ID, "error", err)
		s.metrics.ScanProcessed("room", false)
		return
	}
	if target == nil {
		// Scanned the room we are already in.
		s.metrics.ScanProcessed("room", false)
		return
	}

	s.record(&journal.Event{
		EventType: journal.EventRoomSwitch,
		Detail:    map[string]any{"target_room": target.Number, "target_pk": target.PK},
	})
	s.metrics.ScanProcessed("room", true)
	s.broadcaster.Navigate(*target)
}

// handleDeviceScan applies a device scan to the working set. When the
// device has no row yet, the scan only creates one: the row starts at
// Unknown and the operator confirms it with a second scan or the state
// button. The Found fast path applies to existing rows only.
func (s *Session) handleDeviceScan(code qrcode.Code, raw string) {
	row := s.ledger.Row(code.ID)
	if row == nil {
		rec, err := s.directory.Resolve(s.ctx, code.ID)
		if err != nil {
			if errors.Is(err, device.ErrNotFound) {
				s.notifier.Notify(LevelWarn, fmt.Sprintf("Scanned device %s is not in the database.", code.ID))
			} else {
				s.notifier.Notify(LevelError, fmt.Sprintf("Device %s could not be resolved.", code.ID))
			}
			s.logger.Warn("device scan unresolved", "session_id", s.id, "device_id", code.ID, "error", err)
			s.metrics.ScanProcessed("device", false)
			return
		}

		if s.ledger.CreateRow(rowFromRecord(rec)) {
			row = s.ledger.Row(code.ID)
			s.record(&journal.Event{
				DeviceID:    code.ID,
				EventType:   journal.EventRowCreated,
				RawCode:     raw,
				ResultState: string(row.State),
			})
			s.persistSnapshot()
			s.broadcaster.RowChanged(*row)
		}
		s.metrics.ScanProcessed("device", true)
		return
	}

	state, changed := s.machine.Scan(row)
	if !changed {
		s.metrics.ScanProcessed("device", false)
		return
	}

	if err := s.ledger.Upsert(code.ID, state); err != nil {
		s.reportViolation(code.ID, string(state), err)
		return
	}

	s.record(&journal.Event{
		DeviceID:    code.ID,
		EventType:   journal.EventScan,
		RawCode:     raw,
		ResultState: string(state),
	})
	s.persistSnapshot()
	s.metrics.ScanProcessed("device", true)
	s.metrics.StateChanged(string(state))
	s.broadcaster.RowChanged(*row)
}

// reportViolation journals and surfaces a state-machine invariant
// breach. These indicate corruption, not operator error, so they are
// loud.
func (s *Session) reportViolation(deviceID, state string, err error) {
	s.logger.Error("reconciliation invariant violated",
		"session_id", s.id,
		"device_id", deviceID,
		"state", state,
		"error", err,
	)
	s.notifier.Notify(LevelError, fmt.Sprintf("Inconsistent state for device %s. Reload the session.", deviceID))
	s.record(&journal.Event{
		DeviceID:  deviceID,
		EventType: journal.EventViolation,
		Detail:    map[string]any{"state": state, "error": err.Error()},
	})
}

// record appends a journal event, filling in the session coordinates.
// Journal failures must not stall the walkthrough; they are logged.
func (s *Session) record(ev *journal.Event) {
	ev.SessionID = s.id
	ev.RoomID = s.room.ID
	if err := s.journal.Record(s.baseCtx(), ev); err != nil {
		s.logger.Error("journal write failed", "session_id", s.id, "event_type", ev.EventType, "error", err)
	}
}

// persistSnapshot writes the serialized ledger synchronously so a crash
// never loses more than the in-flight mutation.
func (s *Session) persistSnapshot() {
	payload, err := s.ledger.Serialize()
	if err != nil {
		s.logger.Error("snapshot serialization failed", "session_id", s.id, "error", err)
		return
	}
	err = s.journal.SaveSnapshot(s.baseCtx(), &journal.Snapshot{
		SessionID: s.id,
		RoomID:    s.room.ID,
		Payload:   string(payload),
	})
	if err != nil {
		s.logger.Error("snapshot write failed", "session_id", s.id, "error", err)
	}
}

func (s *Session) baseCtx() context.Context {
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

// rowFromRecord builds a fresh working-set row from a backend record.
func rowFromRecord(rec *device.Record) reconcile.Row {
	return reconcile.Row{
		DeviceID:     rec.ID,
		State:        reconcile.StateUnknown,
		EDVID:        rec.EDVID,
		Manufacturer: rec.Manufacturer,
		Series:       rec.Series,
		RecordType:   rec.RecordType,
		Room:         rec.Room,
	}
}
