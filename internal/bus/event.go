package bus

import "time"

// Event kinds published by the chat core. Subscribers filter on the prefix
// before the dot ("message.", "conversation.", "typing.", "reply.").
const (
	KindMessageAppended      = "message.appended"
	KindConversationUpdated  = "conversation.updated"
	KindConversationSelected = "conversation.selected"
	KindConversationCleared  = "conversation.cleared"
	KindTypingChanged        = "typing.changed"
	KindReplyStateChanged    = "reply.state_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
