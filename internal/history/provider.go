// Package history serves conversation histories from the local store.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/murmur/internal/chat"
	"github.com/matheus3301/murmur/internal/store"
	"go.uber.org/zap"
)

// Seeder generates a thread for a conversation that has no stored history.
type Seeder interface {
	Thread(self, peer chat.User, end time.Time) []chat.Message
}

// Provider implements chat.HistoryProvider and chat.HistoryRecorder on top of
// the store. The first load of a conversation seeds it, so later loads return
// the same messages plus whatever was appended since.
type Provider struct {
	db     *store.DB
	seed   Seeder
	limit  int
	logger *zap.Logger
}

// NewProvider creates a provider returning at most limit messages per load.
// seed may be nil, in which case empty conversations stay empty.
func NewProvider(db *store.DB, seed Seeder, limit int, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{db: db, seed: seed, limit: limit, logger: logger}
}

// History returns the stored thread with peer, seeding it on first access.
func (p *Provider) History(ctx context.Context, self, peer chat.User) ([]chat.Message, error) {
	msgs, err := p.db.ListMessages(ctx, peer.ID, p.limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if len(msgs) > 0 || p.seed == nil {
		return msgs, nil
	}

	conv, err := p.db.GetConversation(peer.ID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	end := time.Now()
	var last chat.Message
	if conv != nil && !conv.LastMessage.IsZero() {
		last = conv.LastMessage
		end = last.Timestamp
	}

	thread := p.seed.Thread(self, peer, end)
	if !last.IsZero() {
		thread = append(thread, last)
	}
	if err := p.db.InsertMessages(ctx, peer.ID, thread); err != nil {
		return nil, fmt.Errorf("seed history: %w", err)
	}
	p.logger.Debug("history seeded", zap.String("conversation_id", peer.ID), zap.Int("messages", len(thread)))

	// Reload so callers always see store precision and the limit applied.
	return p.db.ListMessages(ctx, peer.ID, p.limit)
}

// Record stores an appended message.
func (p *Provider) Record(ctx context.Context, conversationID string, m chat.Message) error {
	return p.db.UpsertMessage(ctx, conversationID, m)
}
