package chat

import "slices"

// MessageStore holds the ordered messages of the active conversation, newest last.
// It is not safe for concurrent use; Controller serializes access.
type MessageStore struct {
	msgs []Message
}

// Append adds m at the end.
func (s *MessageStore) Append(m Message) {
	s.msgs = append(s.msgs, m)
}

// Replace discards the current contents and takes a copy of msgs.
func (s *MessageStore) Replace(msgs []Message) {
	s.msgs = slices.Clone(msgs)
}

// Clear empties the store.
func (s *MessageStore) Clear() {
	s.msgs = nil
}

// Len returns the number of messages.
func (s *MessageStore) Len() int { return len(s.msgs) }

// Last returns the newest message.
func (s *MessageStore) Last() (Message, bool) {
	if len(s.msgs) == 0 {
		return Message{}, false
	}
	return s.msgs[len(s.msgs)-1], true
}

// Snapshot returns a copy of the messages.
func (s *MessageStore) Snapshot() []Message {
	return slices.Clone(s.msgs)
}
