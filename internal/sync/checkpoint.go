package sync

import (
	"database/sql"
	"errors"
	"time"

	"github.com/matheus3301/murmur/internal/store"
)

const keyActiveConversation = "active_conversation"

// Checkpoints stores small pieces of client state between runs.
type Checkpoints struct {
	db *store.DB
}

// NewCheckpoints creates a checkpoint store.
func NewCheckpoints(db *store.DB) *Checkpoints {
	return &Checkpoints{db: db}
}

// Set updates a checkpoint value.
func (c *Checkpoints) Set(key, value string) error {
	now := time.Now().UnixMilli()
	_, err := c.db.Exec(`
		INSERT INTO sync_state (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	return err
}

// Get retrieves a checkpoint value. Missing keys yield "".
func (c *Checkpoints) Get(key string) (string, error) {
	var value string
	err := c.db.QueryRow(`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetActiveConversation remembers the conversation open at exit.
func (c *Checkpoints) SetActiveConversation(id string) error {
	return c.Set(keyActiveConversation, id)
}

// ActiveConversation returns the conversation open at last exit, if any.
func (c *Checkpoints) ActiveConversation() (string, error) {
	return c.Get(keyActiveConversation)
}
