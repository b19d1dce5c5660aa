// Package device resolves scanned device ids against the DLCDB backend.
//
// The backend is the source of truth for device metadata (EDV id,
// manufacturer, series, record type, expected room). This package
// provides a token-authenticated REST client and a session-scoped
// caching directory on top of it. Records are treated as immutable for
// the lifetime of an inventory session.
package device
