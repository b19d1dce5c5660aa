// Package room handles room resolution and mid-walkthrough room
// switching. Scanning a room QR label while inventorizing another room
// offers to navigate there; the switch is gated on confirmation because
// unsaved reconciliation state does not travel across rooms.
package room
