package device

import (
	"context"
	"sync"
)

// Lookup resolves device ids to records. Implemented by Client; tests
// substitute fakes.
type Lookup interface {
	Get(ctx context.Context, id string) (*Record, error)
}

// Directory is a session-scoped read-through cache over a Lookup.
//
// A walkthrough scans the same codes repeatedly and the backend data is
// immutable for the session's duration, so every id is resolved at most
// once. Negative results are not cached: a 404 may be a transient
// backend hiccup and the operator will rescan.
type Directory struct {
	lookup Lookup

	mu      sync.RWMutex
	records map[string]*Record
}

// NewDirectory creates a directory backed by the given lookup.
func NewDirectory(lookup Lookup) *Directory {
	return &Directory{
		lookup:  lookup,
		records: make(map[string]*Record),
	}
}

// Resolve returns the record for a device id, fetching it on first use.
func (d *Directory) Resolve(ctx context.Context, id string) (*Record, error) {
	d.mu.RLock()
	rec, ok := d.records[id]
	d.mu.RUnlock()
	if ok {
		return rec, nil
	}

	rec, err := d.lookup.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.records[id] = rec
	d.mu.Unlock()
	return rec, nil
}

// Prime inserts records resolved out of band, e.g. from the room seed
// listing, so later scans skip the network round trip.
func (d *Directory) Prime(records ...*Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rec := range records {
		if rec != nil && rec.ID != "" {
			d.records[rec.ID] = rec
		}
	}
}

// Len returns the number of cached records.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.records)
}
