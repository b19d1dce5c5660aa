package room

import "errors"

var (
	// ErrNotFound indicates the room id is not known to the backend.
	ErrNotFound = errors.New("room: not found")

	// ErrUnauthorized indicates the backend rejected the API token.
	ErrUnauthorized = errors.New("room: unauthorized")

	// ErrLookupFailed indicates the backend could not be reached or
	// returned an unexpected response.
	ErrLookupFailed = errors.New("room: lookup failed")

	// ErrSwitchDeclined indicates the operator declined to leave the
	// current room.
	ErrSwitchDeclined = errors.New("room: switch declined")

	// ErrSaveFailed indicates the backend rejected the inventory
	// submission.
	ErrSaveFailed = errors.New("room: save failed")
)
