package store

import (
	"time"

	"github.com/SgtClickClack/snipshift-sub007/internal/model"
)

// UpsertConversation inserts or refreshes a conversation record (idempotent
// on the server-assigned ID).
func (db *DB) UpsertConversation(c *model.Conversation) error {
	now := time.Now().UnixMilli()
	var lastID, lastSender, lastContent string
	if c.LastMessage != nil {
		lastID = c.LastMessage.ID
		lastSender = c.LastMessage.SenderID
		lastContent = c.LastMessage.Content
	}
	_, err := db.Exec(`
		INSERT INTO conversations (id, participant_a, participant_b, last_message_id, last_message_sender, last_message_content, last_message_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_message_id = excluded.last_message_id,
			last_message_sender = excluded.last_message_sender,
			last_message_content = excluded.last_message_content,
			last_message_at = excluded.last_message_at,
			updated_at = excluded.updated_at`,
		c.ID, c.Participants[0], c.Participants[1],
		lastID, lastSender, lastContent,
		c.LastMessageAt.UnixMilli(), c.CreatedAt.UnixMilli(), now)
	return err
}

// ListConversations returns cached conversations sorted by last activity
// descending.
func (db *DB) ListConversations(limit int) ([]model.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, participant_a, participant_b, last_message_id, last_message_sender, last_message_content, last_message_at, created_at
		FROM conversations
		ORDER BY last_message_at DESC, created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convos []model.Conversation
	for rows.Next() {
		var c model.Conversation
		var lastID, lastSender, lastContent string
		var lastAt, createdAt int64
		if err := rows.Scan(&c.ID, &c.Participants[0], &c.Participants[1],
			&lastID, &lastSender, &lastContent, &lastAt, &createdAt); err != nil {
			return nil, err
		}
		c.LastMessageAt = time.UnixMilli(lastAt)
		c.CreatedAt = time.UnixMilli(createdAt)
		if lastID != "" {
			c.LastMessage = &model.MessageSummary{
				ID:        lastID,
				SenderID:  lastSender,
				Content:   lastContent,
				Timestamp: time.UnixMilli(lastAt),
			}
		}
		convos = append(convos, c)
	}
	return convos, rows.Err()
}
