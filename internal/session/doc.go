// Package session orchestrates one room walkthrough.
//
// A session wires the QR parser, the reconciliation ledger and state
// machine, the backend clients, and the journal into a single worker
// goroutine. Scans and manual operations are applied strictly in
// arrival order; blocking confirmation prompts hold the queue so
// nothing is reordered around an unanswered question. After every
// accepted mutation the serialized ledger is persisted, so killing the
// process mid-walkthrough loses at most the in-flight scan.
package session
