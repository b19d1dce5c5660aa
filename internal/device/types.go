package device

// Record is the descriptive metadata the backend holds for a device.
// This matches the JSON shape of the backend's /devices/{id}/ endpoint.
//
// Records are immutable once fetched: the source data rarely changes
// mid-walkthrough, so a record is trusted for the rest of the session.
type Record struct {
	// ID is the device UUID.
	ID string `json:"uuid"`

	// EDVID is the human-facing inventory label printed on the device.
	EDVID string `json:"edv_id"`

	Manufacturer string `json:"manufacturer"`
	Series       string `json:"series"`

	// RecordType is the device's current lifecycle record (inroom, lent,
	// lost, removed) as reported by the backend.
	RecordType string `json:"record_type"`

	// Room is the display number of the room currently claiming the
	// device, empty when the device is not located anywhere.
	Room string `json:"room"`
}
