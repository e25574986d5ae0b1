package chat

import (
	"context"
	"time"
)

// HistoryProvider supplies the message history of the conversation between
// self and peer, oldest first.
type HistoryProvider interface {
	History(ctx context.Context, self, peer User) ([]Message, error)
}

// HistoryRecorder is implemented by history providers that keep appended
// messages so that re-selecting a conversation shows them again.
type HistoryRecorder interface {
	Record(ctx context.Context, conversationID string, m Message) error
}

// ReplySource produces the text of a simulated inbound reply from peer.
// history is the visible thread when the reply is produced, or nil when the
// conversation is in the background.
type ReplySource interface {
	Reply(ctx context.Context, self, peer User, history []Message) (string, error)
}

// Scheduler runs delayed tasks grouped by conversation id.
type Scheduler interface {
	Schedule(key string, delay time.Duration, fn func()) uint64
	Cancel(key string) []uint64
	CancelAll() []uint64
}
