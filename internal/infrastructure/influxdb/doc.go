// Package influxdb provides optional scan telemetry storage.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, health monitoring, and per-session recorders that tag
// every point with the session and room. Two measurements are written:
// scans (throughput and acceptance by kind) and transitions (state
// changes applied to the ledger).
//
// Writes are non-blocking and batched according to config.yaml
// (batch_size, flush_interval); a disconnected client drops points
// silently rather than stalling the walkthrough. When the integration
// is disabled, Connect returns ErrDisabled and the daemon substitutes
// no-op metrics.
package influxdb
