package device

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxResponseSize caps lookup response bodies (1 MB).
const maxResponseSize = 1 << 20

// Client looks up device records on the DLCDB backend REST API.
//
// Requests carry the operator's API token in the Authorization header
// ("Token <token>", DRF token auth). The client is read-only: the
// inventory walkthrough never writes device data directly, it only
// submits the reconciliation payload at the end.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a backend device client.
//
// Parameters:
//   - baseURL: API base, e.g. "https://dlcdb.example.org/api/v2"
//   - token: operator API token
//   - timeout: per-request timeout (0 uses a 15s default)
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Get fetches the record for a device id.
//
// Failure modes map onto the package sentinels: ErrNotFound for 404,
// ErrUnauthorized for 401, ErrLookupFailed for transport errors and any
// other non-200 response.
func (c *Client) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := c.getJSON(ctx, fmt.Sprintf("%s/devices/%s/", c.baseURL, id), &rec); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = id
	}
	return &rec, nil
}

// ListByRoom fetches the devices currently on record for a room,
// including their already-inventorized status. Used to seed the session
// working set.
func (c *Client) ListByRoom(ctx context.Context, roomID string) ([]RoomDevice, error) {
	var devices []RoomDevice
	if err := c.getJSON(ctx, fmt.Sprintf("%s/rooms/%s/devices/", c.baseURL, roomID), &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// RoomDevice is one entry of the room seed listing: the device record plus
// its inventory status within the active inventory.
type RoomDevice struct {
	Record
	AlreadyInventorized bool `json:"already_inventorized"`
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %w", ErrLookupFailed, err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, url)
	default:
		return fmt.Errorf("%w: unexpected status %d from %s", ErrLookupFailed, resp.StatusCode, url)
	}

	body := io.LimitReader(resp.Body, maxResponseSize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrLookupFailed, err)
	}
	return nil
}
