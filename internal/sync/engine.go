package sync

import (
	"context"
	"fmt"

	"github.com/matheus3301/murmur/internal/bus"
	"github.com/matheus3301/murmur/internal/chat"
	"github.com/matheus3301/murmur/internal/store"
	"go.uber.org/zap"
)

// Engine persists conversation snapshots published by the chat controller.
// It subscribes to "conversation.*" events on the bus and writes them through
// to the store, so the conversation list survives restarts.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	cp     *Checkpoints
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new sync engine.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:     db,
		bus:    b,
		cp:     NewCheckpoints(db),
		logger: logger,
	}
}

// Start subscribes to conversation events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	ch, unsub := e.bus.Subscribe("conversation.", 256)

	go func() {
		defer close(e.done)
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				// Flush what is already buffered before exiting.
				for {
					select {
					case evt := <-ch:
						e.handleEvent(evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop stops the engine and waits for buffered events to be written.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}

func (e *Engine) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindConversationUpdated:
		conv, ok := evt.Payload.(chat.Conversation)
		if !ok {
			return
		}
		if err := e.SaveConversation(conv); err != nil {
			e.logger.Error("failed to persist conversation", zap.Error(err), zap.String("conversation_id", conv.ID))
		}
	case bus.KindConversationSelected:
		id, _ := evt.Payload.(string)
		if err := e.cp.SetActiveConversation(id); err != nil {
			e.logger.Warn("failed to store active conversation", zap.Error(err))
		}
	case bus.KindConversationCleared:
		if err := e.cp.SetActiveConversation(""); err != nil {
			e.logger.Warn("failed to clear active conversation", zap.Error(err))
		}
	}
}

// SaveConversation writes one conversation snapshot (idempotent).
func (e *Engine) SaveConversation(conv chat.Conversation) error {
	if err := e.db.UpsertConversation(conv); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}

// SaveAll writes a batch of conversations, typically freshly generated contacts.
func (e *Engine) SaveAll(convs []chat.Conversation) error {
	for _, c := range convs {
		if err := e.SaveConversation(c); err != nil {
			return err
		}
	}
	e.logger.Info("conversations saved", zap.Int("count", len(convs)))
	return nil
}
