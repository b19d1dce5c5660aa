// DLCDB Inventory Scan Client
//
// inventoryd is the local companion daemon for physical inventories.
// It resolves QR-labelled devices against the DLCDB backend, keeps a
// per-room working set with an on-disk journal, and serves the operator
// UI over a loopback HTTP/WebSocket API. Scans arrive over the
// WebSocket feed or, optionally, from handheld gateways via MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/dlcdb/inventory-core/migrations"

	"github.com/dlcdb/inventory-core/internal/api"
	"github.com/dlcdb/inventory-core/internal/device"
	"github.com/dlcdb/inventory-core/internal/infrastructure/config"
	"github.com/dlcdb/inventory-core/internal/infrastructure/database"
	"github.com/dlcdb/inventory-core/internal/infrastructure/influxdb"
	"github.com/dlcdb/inventory-core/internal/infrastructure/logging"
	"github.com/dlcdb/inventory-core/internal/infrastructure/mqtt"
	"github.com/dlcdb/inventory-core/internal/journal"
	"github.com/dlcdb/inventory-core/internal/qrcode"
	"github.com/dlcdb/inventory-core/internal/room"
	"github.com/dlcdb/inventory-core/internal/session"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// startupTimeout bounds the initial backend calls (room lookup and the
// room device listing). The daemon refuses to start without them.
const startupTimeout = 30 * time.Second

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting inventory scan client",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the local journal database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	journalRepo := journal.NewSQLiteRepository(db.DB)

	// Backend clients
	deviceClient := device.NewClient(cfg.Backend.BaseURL, cfg.Backend.Token, cfg.GetBackendTimeout())
	roomClient := room.NewClient(cfg.Backend.BaseURL, cfg.Backend.Token, cfg.GetBackendTimeout())

	parser, err := qrcode.NewParser(cfg.Backend.QRPrefix)
	if err != nil {
		return fmt.Errorf("building QR parser: %w", err)
	}

	// Resolve the starting room before anything else: a session without
	// a valid room has nothing to reconcile against.
	startCtx, startCancel := context.WithTimeout(ctx, startupTimeout)
	startRoom, err := roomClient.Get(startCtx, cfg.Session.RoomID)
	startCancel()
	if err != nil {
		return fmt.Errorf("resolving starting room %s: %w", cfg.Session.RoomID, err)
	}
	log.Info("starting room resolved",
		"room", startRoom.Number,
		"pk", startRoom.PK,
	)

	// The hub carries row updates, prompts and notices to the operator
	// UI, and feeds WebSocket scans back into the session.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	prompts := session.NewBroker(hub, cfg.GetPromptTimeout())
	switcher := room.NewSwitcher(roomClient, prompts)
	directory := device.NewDirectory(deviceClient)

	// Connect to InfluxDB (optional scan telemetry)
	var metrics session.Metrics
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"bucket", cfg.InfluxDB.Bucket,
		)
		metrics = influxClient.Recorder(sessionID(startRoom), startRoom.Number)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Assemble and start the session. The session id is derived from
	// the room so a restarted daemon resumes the same snapshot.
	sess := session.New(
		sessionID(startRoom),
		*startRoom,
		parser,
		prompts,
		switcher,
		directory,
		deviceClient,
		roomClient,
		journalRepo,
		session.Options{
			Notifier:    hub,
			Broadcaster: hub,
			Metrics:     metrics,
			Logger:      log,
			QueueSize:   cfg.Session.QueueSize,
		},
	)
	// Start gets the long-lived context: it becomes the base context
	// for scan processing, not just for the initial seed.
	if startErr := sess.Start(ctx); startErr != nil {
		return fmt.Errorf("starting session: %w", startErr)
	}
	defer func() {
		log.Info("closing session")
		sess.Close()
	}()
	log.Info("session started",
		"session_id", sess.ID(),
		"room", startRoom.Number,
	)

	// Connect to MQTT broker (optional handheld scanner feed)
	if cfg.MQTT.Enabled {
		mqttClient, connErr := mqtt.Connect(cfg.MQTT)
		if connErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", connErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		if subErr := mqttClient.SubscribeScans(cfg.MQTT.ScanTopic, byte(cfg.MQTT.QoS), sess); subErr != nil {
			return fmt.Errorf("subscribing to scan topic: %w", subErr)
		}
		log.Info("scan feed subscribed", "topic", cfg.MQTT.ScanTopic)
	} else {
		log.Info("MQTT disabled")
	}

	// Start the local API server, reusing the hub already wired into
	// the session.
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Session:     sess,
		Prompts:     prompts,
		Journal:     journalRepo,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. MQTT (if enabled)
	// 3. Session
	// 4. InfluxDB (if enabled)
	// 5. Database

	log.Info("inventory scan client stopped")
	return nil
}

// sessionID derives a stable session identifier from the starting room.
// Keeping it stable across restarts lets the journal snapshot restore
// an interrupted inventory of the same room.
func sessionID(r *room.Room) string {
	return fmt.Sprintf("room-%d", r.PK)
}

// getConfigPath returns the configuration file path.
// Uses INVENTORY_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("INVENTORY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
