package store

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/murmur/internal/chat"
)

const upsertMessageSQL = `
	INSERT INTO messages (conversation_id, msg_id, sender_id, receiver_id, body, status, timestamp, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(conversation_id, msg_id) DO UPDATE SET
		body = excluded.body,
		status = excluded.status`

// UpsertMessage inserts or updates a message (idempotent on conversation + msg id).
func (db *DB) UpsertMessage(ctx context.Context, conversationID string, m chat.Message) error {
	_, err := db.ExecContext(ctx, upsertMessageSQL,
		conversationID, m.ID, m.SenderID, m.ReceiverID, m.Text, string(m.Status),
		m.Timestamp.UnixMilli(), time.Now().UnixMilli())
	return err
}

// InsertMessages stores a batch of messages in one transaction.
func (db *DB) InsertMessages(ctx context.Context, conversationID string, msgs []chat.Message) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, m := range msgs {
		if _, err := tx.ExecContext(ctx, upsertMessageSQL,
			conversationID, m.ID, m.SenderID, m.ReceiverID, m.Text, string(m.Status),
			m.Timestamp.UnixMilli(), now); err != nil {
			return fmt.Errorf("insert message %q: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// ListMessages returns the newest limit messages of a conversation, oldest first.
func (db *DB) ListMessages(ctx context.Context, conversationID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `
		SELECT msg_id, sender_id, receiver_id, body, status, timestamp FROM (
			SELECT id, msg_id, sender_id, receiver_id, body, status, timestamp
			FROM messages
			WHERE conversation_id = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		) ORDER BY timestamp ASC, id ASC`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []chat.Message
	for rows.Next() {
		var (
			m      chat.Message
			status string
			ts     int64
		)
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Text, &status, &ts); err != nil {
			return nil, err
		}
		m.Status = chat.Status(status)
		m.Timestamp = time.UnixMilli(ts)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the number of stored messages of a conversation.
func (db *DB) MessageCount(conversationID string) (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&count)
	return count, err
}
