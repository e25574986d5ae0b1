package delivery

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/murmur/internal/bus"
)

// State is a step in the life of a single send operation.
type State string

const (
	Idle         State = "IDLE"
	Sent         State = "SENT"
	ReplyPending State = "REPLY_PENDING"
	Delivered    State = "DELIVERED"
)

// validTransitions defines allowed state transitions.
// ReplyPending -> Idle covers an abandoned reply (source error or cancelled task).
var validTransitions = map[State][]State{
	Idle:         {Sent},
	Sent:         {ReplyPending},
	ReplyPending: {Delivered, Idle},
	Delivered:    {Idle},
}

// Machine tracks one send from the optimistic append to the simulated reply.
type Machine struct {
	mu             sync.RWMutex
	current        State
	conversationID string
	sendID         string
	bus            *bus.Bus
}

// NewMachine creates a machine in Idle for the message sendID sent to conversationID.
func NewMachine(b *bus.Bus, conversationID, sendID string) *Machine {
	return &Machine{
		current:        Idle,
		conversationID: conversationID,
		sendID:         sendID,
		bus:            b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// ConversationID returns the conversation the send is bound to.
func (m *Machine) ConversationID() string { return m.conversationID }

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.bus.Publish(bus.Event{
		Kind:      bus.KindReplyStateChanged,
		Timestamp: time.Now(),
		Payload: StateChange{
			ConversationID: m.conversationID,
			SendID:         m.sendID,
			From:           from,
			To:             to,
		},
	})
	return nil
}

// StateChange is the payload for reply state change events.
type StateChange struct {
	ConversationID string
	SendID         string
	From           State
	To             State
}
