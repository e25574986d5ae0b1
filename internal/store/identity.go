package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/murmur/internal/chat"
)

// SaveIdentity stores u as the signed-in user, replacing any previous one.
func (db *DB) SaveIdentity(u chat.User) error {
	_, err := db.Exec(`
		INSERT INTO identity (slot, user_id, name, email, avatar, signed_in, created_at)
		VALUES (1, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(slot) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			email = excluded.email,
			avatar = excluded.avatar,
			signed_in = 1,
			created_at = excluded.created_at`,
		u.ID, u.Name, u.Email, u.Avatar, time.Now().UnixMilli())
	return err
}

// LoadIdentity returns the signed-in user, or nil if nobody is signed in.
func (db *DB) LoadIdentity() (*chat.User, error) {
	return db.identity(`WHERE slot = 1 AND signed_in = 1`)
}

// LastIdentity returns the most recent identity whether or not it is still
// signed in, or nil on a fresh profile.
func (db *DB) LastIdentity() (*chat.User, error) {
	return db.identity(`WHERE slot = 1`)
}

func (db *DB) identity(where string) (*chat.User, error) {
	var u chat.User
	err := db.QueryRow(`SELECT user_id, name, email, avatar FROM identity `+where).
		Scan(&u.ID, &u.Name, &u.Email, &u.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ClearIdentity signs the user out. The row is kept so LastIdentity can tell
// whether the next sign-in is the same account.
func (db *DB) ClearIdentity() error {
	_, err := db.Exec(`UPDATE identity SET signed_in = 0`)
	return err
}

// ResetChats removes every contact, conversation, message and checkpoint.
func (db *DB) ResetChats() error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"messages", "conversations", "contacts", "sync_state"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}
