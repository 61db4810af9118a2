package store

import (
	"time"

	"github.com/SgtClickClack/snipshift-sub007/internal/model"
)

// UpsertMessage inserts or refreshes a message (idempotent on the server ID).
// Re-ingesting the same poll snapshot is a no-op apart from read-state.
func (db *DB) UpsertMessage(m *model.Message) error {
	now := time.Now().UnixMilli()
	read := 0
	if m.Read {
		read = 1
	}
	_, err := db.Exec(`
		INSERT INTO messages (id, conversation_id, sender_id, content, read, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			read = excluded.read`,
		m.ID, m.ChatID, m.SenderID, m.Content, read, m.Timestamp.UnixMilli(), now)
	return err
}

// ReplaceMessages swaps a conversation's cached messages for a fresh poll
// snapshot in one transaction, so superseded optimistic placeholders drop out.
func (db *DB) ReplaceMessages(conversationID string, msgs []model.Message) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	for _, m := range msgs {
		read := 0
		if m.Read {
			read = 1
		}
		if _, err := tx.Exec(`
			INSERT INTO messages (id, conversation_id, sender_id, content, read, timestamp, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET content = excluded.content, read = excluded.read`,
			m.ID, conversationID, m.SenderID, m.Content, read, m.Timestamp.UnixMilli(), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListMessages returns a conversation's cached messages oldest to newest.
func (db *DB) ListMessages(conversationID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := db.Query(`
		SELECT id, conversation_id, sender_id, content, read, timestamp
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC
		LIMIT ?`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		var read int
		var ts int64
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &read, &ts); err != nil {
			return nil, err
		}
		m.Read = read != 0
		m.Timestamp = time.UnixMilli(ts)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
