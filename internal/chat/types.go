// Package chat holds the conversation and message state of one client session:
// the ordered messages of the active conversation, the conversation registry
// with last-message and unread bookkeeping, and the controller that switches
// conversations and simulates replies to outgoing messages.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Status is the delivery state of a message.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// User identifies a chat participant, either the session user or a contact.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// Message is a single text exchanged between two users.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Status     Status    `json:"status"`
}

// NewMessage builds a message with a time-ordered id.
func NewMessage(senderID, receiverID, text string, status Status, ts time.Time) Message {
	return Message{
		ID:         NewMessageID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Timestamp:  ts,
		Status:     status,
	}
}

// NewMessageID returns a UUIDv7 string; ids sort in creation order.
func NewMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Between reports whether m was exchanged between a and b, in either direction.
func (m Message) Between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// IsZero reports whether m is the zero message.
func (m Message) IsZero() bool { return m.ID == "" }

// Conversation is the 1:1 thread with a contact. ID equals User.ID.
type Conversation struct {
	ID          string  `json:"id"`
	User        User    `json:"user"`
	LastMessage Message `json:"lastMessage"`
	Unread      int     `json:"unread"`
}

// State is a snapshot of the session's foreground state.
type State struct {
	ActiveConversationID string
	Messages             []Message
	IsTyping             bool
}

// MessageAppended is the payload of bus.KindMessageAppended.
// Active is false when the message landed in a background conversation.
type MessageAppended struct {
	ConversationID string
	Message        Message
	Active         bool
}

// TypingChanged is the payload of bus.KindTypingChanged.
type TypingChanged struct {
	ConversationID string
	Typing         bool
}
