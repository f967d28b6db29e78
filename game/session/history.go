package session

import (
	"slices"

	"github.com/wricardo/tiles-server/protocol"
)

// History is the ordered log of durable events of the current game.
// It is guarded by the Manager.
type History struct {
	events []protocol.Message
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{}
}

// Append records an event
func (h *History) Append(m protocol.Message) {
	h.events = append(h.events, m)
}

// Events returns a copy of the recorded events
func (h *History) Events() []protocol.Message {
	return slices.Clone(h.events)
}

// Len returns the number of recorded events
func (h *History) Len() int {
	return len(h.events)
}

// Reset clears the history
func (h *History) Reset() {
	h.events = nil
}
