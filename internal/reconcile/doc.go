// Package reconcile implements the inventory reconciliation core: the
// per-device state machine and the session ledger.
//
// During a walkthrough every device on record for the room carries exactly
// one State. Scans and manual toggles drive transitions through the
// Machine; accepted results land in the Ledger, whose serialized form is
// the payload the backend persists on save.
//
// # Key Types
//
//   - State: the five-member reconciliation state enumeration
//   - Row: a working-set entry (device + state + inventorized flag)
//   - Machine: the transition table, including the destructive-removal
//     confirmation on clearing an inventorized device
//   - Ledger: the id-to-state mapping plus the working set, with
//     serialize/deserialize for the submittable payload
//
// # Ownership
//
// A Ledger and Machine belong to one session and are driven from its
// single worker goroutine; nothing here is synchronized. See the session
// package for the orchestration around them.
package reconcile
