// Package client assembles the terminal client's session runtime: profile
// database, identity, event bus, write-through sync and the chat controller.
package client

import (
	"context"
	"fmt"

	"github.com/matheus3301/murmur/internal/assistant"
	"github.com/matheus3301/murmur/internal/bus"
	"github.com/matheus3301/murmur/internal/chat"
	"github.com/matheus3301/murmur/internal/config"
	"github.com/matheus3301/murmur/internal/demo"
	"github.com/matheus3301/murmur/internal/history"
	"github.com/matheus3301/murmur/internal/session"
	"github.com/matheus3301/murmur/internal/store"
	chatsync "github.com/matheus3301/murmur/internal/sync"
	"go.uber.org/zap"
)

// historyLimit caps the messages loaded when a conversation is opened.
const historyLimit = 500

// Runtime owns the long-lived pieces of one profile. Controllers come and go
// with sign-ins; the runtime lives until the process exits.
type Runtime struct {
	Config  *config.Config
	Layout  session.Layout
	DB      *store.DB
	Session *session.Session
	Bus     *bus.Bus
	Sync    *chatsync.Engine

	checkpoints *chatsync.Checkpoints
	logger      *zap.Logger
	seed        uint64
}

// Open prepares the profile directory, opens and migrates its database and
// starts the sync engine.
func Open(ctx context.Context, layout session.Layout, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := layout.EnsureDir(); err != nil {
		return nil, fmt.Errorf("prepare profile dir: %w", err)
	}
	db, err := store.Open(layout.DBPath())
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("database ready",
		zap.String("path", layout.DBPath()),
		zap.Uint("schema_version", result.Version),
		zap.Bool("migrated", result.Changed))

	b := bus.New()
	engine := chatsync.NewEngine(db, b, logger.Named("sync"))
	engine.Start(ctx)

	return &Runtime{
		Config:      cfg,
		Layout:      layout,
		DB:          db,
		Session:     session.New(db),
		Bus:         b,
		Sync:        engine,
		checkpoints: chatsync.NewCheckpoints(db),
		logger:      logger,
	}, nil
}

// Start builds the controller for self: stored conversations (or freshly
// generated contacts on first use), the store-backed history and the
// configured reply source. The conversation open at last exit is reopened.
func (r *Runtime) Start(ctx context.Context, self chat.User) (*chat.Controller, error) {
	gen := demo.New(r.seed, r.Config.HistorySize)

	convs, err := r.DB.ListConversations()
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if len(convs) == 0 {
		convs = gen.Contacts(self, r.Config.Contacts)
		if err := r.Sync.SaveAll(convs); err != nil {
			return nil, fmt.Errorf("save contacts: %w", err)
		}
	}
	restore, err := r.checkpoints.ActiveConversation()
	if err != nil {
		r.logger.Warn("failed to read active conversation checkpoint", zap.Error(err))
	}

	logger := r.logger.Named("chat")
	ctrl := chat.NewController(self, chat.Deps{
		History: history.NewProvider(r.DB, gen, historyLimit, logger),
		Replies: r.replySource(gen),
		Bus:     r.Bus,
		Logger:  logger,
	}, chat.Options{
		ReplyDelayMin:         r.Config.ReplyDelayMin.Duration,
		ReplyDelayMax:         r.Config.ReplyDelayMax.Duration,
		CancelPendingOnSwitch: r.Config.CancelPendingOnSwitch,
	})

	// Only the restored conversation is opened, so the others keep their
	// unread counts across restarts.
	if err := ctrl.Bootstrap(ctx, convs, restore); err != nil {
		ctrl.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	r.logger.Info("chat session started",
		zap.String("user_id", self.ID),
		zap.Int("conversations", len(convs)),
		zap.String("reply_source", r.Config.ReplySource))
	return ctrl, nil
}

func (r *Runtime) replySource(gen *demo.Generator) chat.ReplySource {
	if r.Config.ReplySource == config.ReplySourceAssistant {
		return assistant.New(r.Config.ServerURL, r.logger.Named("assistant"))
	}
	return gen
}

// Close stops the sync engine, flushing buffered events, and closes the database.
func (r *Runtime) Close() error {
	r.Sync.Stop()
	return r.DB.Close()
}
