package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dlcdb/inventory-core/internal/room"
)

// PromptKind identifies what the operator is being asked.
type PromptKind string

// Prompt kinds.
const (
	PromptRemoval    PromptKind = "removal"
	PromptRoomSwitch PromptKind = "room_switch"
)

// Prompt is a pending yes/no question for the operator.
type Prompt struct {
	ID        string     `json:"id"`
	Kind      PromptKind `json:"kind"`
	DeviceID  string     `json:"device_id,omitempty"`
	Room      *room.Room `json:"room,omitempty"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
}

// PromptPublisher pushes a new prompt to the operator UI, typically over
// the websocket hub.
type PromptPublisher interface {
	PromptOpened(p Prompt)
}

// PromptPublisherFunc adapts a function to the PromptPublisher interface.
type PromptPublisherFunc func(p Prompt)

// PromptOpened calls f.
func (f PromptPublisherFunc) PromptOpened(p Prompt) { f(p) }

// Broker relays blocking confirmation prompts between the session worker
// and the operator UI.
//
// Ask blocks the calling goroutine (the session worker) until Answer is
// invoked from the API layer, the timeout expires, or ctx is cancelled.
// Blocking the worker is intentional: scans queued behind an unanswered
// prompt must not be reordered around it.
type Broker struct {
	publisher PromptPublisher
	timeout   time.Duration

	mu      sync.Mutex
	pending map[string]pendingPrompt
}

type pendingPrompt struct {
	prompt Prompt
	answer chan bool
}

// NewBroker creates a prompt broker. A timeout of 0 means prompts wait
// indefinitely (until ctx cancellation).
func NewBroker(publisher PromptPublisher, timeout time.Duration) *Broker {
	if publisher == nil {
		publisher = PromptPublisherFunc(func(Prompt) {})
	}
	return &Broker{
		publisher: publisher,
		timeout:   timeout,
		pending:   make(map[string]pendingPrompt),
	}
}

// Ask publishes a prompt and blocks until it is answered.
func (b *Broker) Ask(ctx context.Context, p Prompt) (bool, error) {
	p.ID = "prm-" + uuid.NewString()[:8]
	p.CreatedAt = time.Now().UTC()
	answer := make(chan bool, 1)

	b.mu.Lock()
	b.pending[p.ID] = pendingPrompt{prompt: p, answer: answer}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, p.ID)
		b.mu.Unlock()
	}()

	b.publisher.PromptOpened(p)

	var timeout <-chan time.Time
	if b.timeout > 0 {
		timer := time.NewTimer(b.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case accepted := <-answer:
		return accepted, nil
	case <-timeout:
		return false, fmt.Errorf("%w: %s", ErrPromptTimeout, p.ID)
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Answer resolves a pending prompt. Called from the API layer when the
// operator clicks through.
func (b *Broker) Answer(id string, accepted bool) error {
	b.mu.Lock()
	p, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrPromptNotFound, id)
	}
	p.answer <- accepted
	return nil
}

// Pending returns the prompts still awaiting an answer.
func (b *Broker) Pending() []Prompt {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Prompt, 0, len(b.pending))
	for _, p := range b.pending {
		out = append(out, p.prompt)
	}
	return out
}

// ConfirmRemoval implements the reconcile confirmer: asks before
// clearing an already-inventorized device back to Unknown.
func (b *Broker) ConfirmRemoval(ctx context.Context, deviceID string) (bool, error) {
	return b.Ask(ctx, Prompt{
		Kind:     PromptRemoval,
		DeviceID: deviceID,
		Message:  "Device is already inventorized. Clearing it removes the record on save. Continue?",
	})
}

// ConfirmSwitch implements the room confirmer: asks before navigating
// away from the room being inventorized.
func (b *Broker) ConfirmSwitch(ctx context.Context, target *room.Room) (bool, error) {
	return b.Ask(ctx, Prompt{
		Kind:    PromptRoomSwitch,
		Room:    target,
		Message: fmt.Sprintf("Switch to room %s? Unsaved changes in the current room are lost.", target.Number),
	})
}
