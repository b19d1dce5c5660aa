package room

// Room is a physical room as known to the DLCDB backend.
//
// ID is the uuid encoded in the room's QR label. PK is the backend's
// stable numeric key, used as the navigation target when the operator
// switches rooms mid-walkthrough.
type Room struct {
	ID     string `json:"uuid"`
	PK     int64  `json:"pk"`
	Number string `json:"number"`
}
