package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Recorder scopes metric writes to one session. It satisfies the
// session's Metrics interface.
type Recorder struct {
	client    *Client
	sessionID string
	room      string
}

// Recorder returns a per-session metric recorder tagging every point
// with the session id and room number.
func (c *Client) Recorder(sessionID, roomNumber string) *Recorder {
	return &Recorder{
		client:    c,
		sessionID: sessionID,
		room:      roomNumber,
	}
}

// ScanProcessed records one processed scan. Kind is "device", "room" or
// "invalid"; accepted marks whether the scan changed anything.
func (r *Recorder) ScanProcessed(kind string, accepted bool) {
	result := "ignored"
	if accepted {
		result = "accepted"
	}
	r.client.writePoint("scans",
		map[string]string{
			"session_id": r.sessionID,
			"room":       r.room,
			"kind":       kind,
			"result":     result,
		},
		map[string]interface{}{
			"count": 1,
		},
	)
}

// StateChanged records one reconciliation state transition.
func (r *Recorder) StateChanged(state string) {
	r.client.writePoint("transitions",
		map[string]string{
			"session_id": r.sessionID,
			"room":       r.room,
			"state":      state,
		},
		map[string]interface{}{
			"count": 1,
		},
	)
}

// writePoint writes a point with the current timestamp. Drops silently
// when disconnected; telemetry must never stall a walkthrough.
func (c *Client) writePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
