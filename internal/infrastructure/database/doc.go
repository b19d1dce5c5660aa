// Package database manages the local SQLite database used by the
// inventory scan client.
//
// The database holds the session journal and session snapshots; the
// authoritative device and room records live in the DLCDB backend and are
// only read over its REST API.
//
// # Features
//
//   - Connection management with WAL mode and busy timeout
//   - Embedded SQL migrations (see the migrations package)
//   - Health checks
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
