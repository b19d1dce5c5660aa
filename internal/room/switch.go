package room

import (
	"context"
	"fmt"
)

// Lookup resolves room ids to rooms. Implemented by Client.
type Lookup interface {
	Get(ctx context.Context, id string) (*Room, error)
}

// Confirmer asks the operator whether to leave the current room for the
// target. Unsaved work in the current session is lost on switch, so the
// question is always posed before navigating.
type Confirmer interface {
	ConfirmSwitch(ctx context.Context, target *Room) (bool, error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, target *Room) (bool, error)

// ConfirmSwitch calls f.
func (f ConfirmerFunc) ConfirmSwitch(ctx context.Context, target *Room) (bool, error) {
	return f(ctx, target)
}

// Switcher handles room QR scans during a walkthrough: resolving the
// target room and gating navigation on operator confirmation.
type Switcher struct {
	lookup    Lookup
	confirmer Confirmer
}

// NewSwitcher creates a room switcher.
func NewSwitcher(lookup Lookup, confirmer Confirmer) *Switcher {
	return &Switcher{lookup: lookup, confirmer: confirmer}
}

// Switch processes a scanned room id against the current room.
//
// Scanning the code of the room already being inventorized is a no-op
// and returns nil without prompting. Otherwise the target is resolved,
// the operator is asked to confirm, and the target room is returned as
// the navigation destination. A declined prompt returns
// ErrSwitchDeclined.
func (s *Switcher) Switch(ctx context.Context, currentRoomID, targetID string) (*Room, error) {
	if targetID == currentRoomID {
		return nil, nil
	}

	target, err := s.lookup.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}

	ok, err := s.confirmer.ConfirmSwitch(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("confirming room switch: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSwitchDeclined, target.Number)
	}
	return target, nil
}
