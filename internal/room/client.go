package room

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseSize = 1 << 20

// Client looks up rooms on the DLCDB backend REST API using the same
// token auth as the device client.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a backend room client.
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

// Get fetches the room for a scanned room id.
func (c *Client) Get(ctx context.Context, id string) (*Room, error) {
	url := fmt.Sprintf("%s/rooms/%s/", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrLookupFailed, err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, url)
	default:
		return nil, fmt.Errorf("%w: unexpected status %d from %s", ErrLookupFailed, resp.StatusCode, url)
	}

	var rm Room
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&rm); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrLookupFailed, err)
	}
	if rm.ID == "" {
		rm.ID = id
	}
	return &rm, nil
}

// SaveInventory submits the serialized reconciliation payload for a room.
//
// The backend applies the device-id-to-state map against the active
// inventory: Found adds or confirms an inventory record, NotFound marks
// the device missing, Unknown clears any record made so far.
func (c *Client) SaveInventory(ctx context.Context, roomPK int64, payload []byte) error {
	body, err := json.Marshal(map[string]json.RawMessage{
		"uuids_states": json.RawMessage(payload),
	})
	if err != nil {
		return fmt.Errorf("%w: encoding payload: %w", ErrSaveFailed, err)
	}

	url := fmt.Sprintf("%s/rooms/%d/inventorize/", c.baseURL, roomPK)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: building request: %w", ErrSaveFailed, err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, url)
	default:
		return fmt.Errorf("%w: unexpected status %d from %s", ErrSaveFailed, resp.StatusCode, url)
	}
}
