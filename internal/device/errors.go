package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrNotFound) {
//	    // surface "unknown device" to the operator
//	}
var (
	// ErrNotFound is returned when the backend has no device for the id (404).
	ErrNotFound = errors.New("device: not found")

	// ErrUnauthorized is returned when the backend rejects the API token (401).
	ErrUnauthorized = errors.New("device: unauthorized")

	// ErrLookupFailed is returned for transport failures and unexpected
	// backend responses.
	ErrLookupFailed = errors.New("device: lookup failed")
)
