package chat

import (
	"cmp"
	"fmt"
	"slices"
)

// Registry owns every known conversation. It is not safe for concurrent use;
// Controller serializes access.
type Registry struct {
	convs map[string]*Conversation
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{convs: make(map[string]*Conversation)}
}

// Add inserts c or replaces the record with the same id.
// The id is forced to the counterpart's user id and unread is clamped at zero.
func (r *Registry) Add(c Conversation) {
	c.ID = c.User.ID
	c.Unread = max(c.Unread, 0)
	if _, ok := r.convs[c.ID]; !ok {
		r.order = append(r.order, c.ID)
	}
	r.convs[c.ID] = &c
}

// Get returns a copy of the conversation with id.
func (r *Registry) Get(id string) (Conversation, bool) {
	c, ok := r.convs[id]
	if !ok {
		return Conversation{}, false
	}
	return *c, true
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.convs[id]
	return ok
}

// Len returns the number of conversations.
func (r *Registry) Len() int { return len(r.order) }

// SetLastMessage points the conversation's last message at m.
func (r *Registry) SetLastMessage(id string, m Message) error {
	c, ok := r.convs[id]
	if !ok {
		return fmt.Errorf("set last message on %q: %w", id, ErrNotFound)
	}
	c.LastMessage = m
	return nil
}

// ResetUnread zeroes the unread counter.
func (r *Registry) ResetUnread(id string) error {
	c, ok := r.convs[id]
	if !ok {
		return fmt.Errorf("reset unread on %q: %w", id, ErrNotFound)
	}
	c.Unread = 0
	return nil
}

// IncrementUnread adds one to the unread counter.
func (r *Registry) IncrementUnread(id string) error {
	c, ok := r.convs[id]
	if !ok {
		return fmt.Errorf("increment unread on %q: %w", id, ErrNotFound)
	}
	c.Unread++
	return nil
}

// List returns the conversations ordered by last message, most recent first.
// Conversations with equal timestamps keep their registration order.
func (r *Registry) List() []Conversation {
	out := make([]Conversation, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.convs[id])
	}
	slices.SortStableFunc(out, func(a, b Conversation) int {
		return cmp.Compare(b.LastMessage.Timestamp.UnixNano(), a.LastMessage.Timestamp.UnixNano())
	})
	return out
}
