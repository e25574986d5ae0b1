package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/murmur/internal/chat"
)

const conversationColumns = `
	c.id, ct.name, ct.email, ct.avatar, c.unread_count,
	c.last_msg_id, c.last_sender_id, c.last_receiver_id, c.last_body, c.last_status, c.last_message_at`

// UpsertConversation inserts or updates a conversation and its contact.
func (db *DB) UpsertConversation(c chat.Conversation) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	if _, err := tx.Exec(`
		INSERT INTO contacts (id, name, email, avatar, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE contacts.name END,
			email = CASE WHEN excluded.email != '' THEN excluded.email ELSE contacts.email END,
			avatar = CASE WHEN excluded.avatar != '' THEN excluded.avatar ELSE contacts.avatar END,
			updated_at = excluded.updated_at`,
		c.User.ID, c.User.Name, c.User.Email, c.User.Avatar, now); err != nil {
		return fmt.Errorf("upsert contact %q: %w", c.User.ID, err)
	}

	last := c.LastMessage
	if _, err := tx.Exec(`
		INSERT INTO conversations (id, unread_count, last_msg_id, last_sender_id, last_receiver_id,
			last_body, last_status, last_message_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			unread_count = excluded.unread_count,
			last_msg_id = excluded.last_msg_id,
			last_sender_id = excluded.last_sender_id,
			last_receiver_id = excluded.last_receiver_id,
			last_body = excluded.last_body,
			last_status = excluded.last_status,
			last_message_at = excluded.last_message_at,
			updated_at = excluded.updated_at`,
		c.User.ID, max(c.Unread, 0), last.ID, last.SenderID, last.ReceiverID,
		last.Text, string(last.Status), unixMilli(last.Timestamp), now); err != nil {
		return fmt.Errorf("upsert conversation %q: %w", c.User.ID, err)
	}
	return tx.Commit()
}

// ListConversations returns every conversation, most recent activity first.
func (db *DB) ListConversations() ([]chat.Conversation, error) {
	rows, err := db.Query(`
		SELECT` + conversationColumns + `
		FROM conversations c
		JOIN contacts ct ON ct.id = c.id
		ORDER BY c.last_message_at DESC, c.rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []chat.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, *c)
	}
	return convs, rows.Err()
}

// GetConversation returns one conversation, or nil if it does not exist.
func (db *DB) GetConversation(id string) (*chat.Conversation, error) {
	row := db.QueryRow(`
		SELECT`+conversationColumns+`
		FROM conversations c
		JOIN contacts ct ON ct.id = c.id
		WHERE c.id = ?`, id)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// ConversationCount returns the number of stored conversations.
func (db *DB) ConversationCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(s scanner) (*chat.Conversation, error) {
	var (
		c      chat.Conversation
		status string
		lastAt int64
	)
	if err := s.Scan(&c.ID, &c.User.Name, &c.User.Email, &c.User.Avatar, &c.Unread,
		&c.LastMessage.ID, &c.LastMessage.SenderID, &c.LastMessage.ReceiverID,
		&c.LastMessage.Text, &status, &lastAt); err != nil {
		return nil, err
	}
	c.User.ID = c.ID
	c.LastMessage.Status = chat.Status(status)
	if c.LastMessage.ID != "" {
		c.LastMessage.Timestamp = time.UnixMilli(lastAt)
	}
	return &c, nil
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
