package session

import "errors"

var (
	// ErrClosed indicates the session worker has shut down.
	ErrClosed = errors.New("session: closed")

	// ErrQueueFull indicates the scan queue is saturated and the scan
	// was dropped.
	ErrQueueFull = errors.New("session: scan queue full")

	// ErrUnknownRow indicates an operation referenced a device with no
	// working-set row.
	ErrUnknownRow = errors.New("session: unknown row")

	// ErrPromptNotFound indicates an answer arrived for a prompt that
	// does not exist or was already answered.
	ErrPromptNotFound = errors.New("session: prompt not found")

	// ErrPromptTimeout indicates the operator did not answer a prompt
	// in time.
	ErrPromptTimeout = errors.New("session: prompt timed out")
)
