package store

import "github.com/SgtClickClack/snipshift-sub007/internal/model"

// SavePending persists an offline-queued send so it survives a restart.
func (db *DB) SavePending(p *model.PendingMessage) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO pending_messages (id, conversation_id, sender_id, receiver_id, content, queued_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.ConversationID, p.SenderID, p.ReceiverID, p.Content, p.QueuedAt)
	return err
}

// DeletePending removes a queued send after a confirmed resend.
func (db *DB) DeletePending(id string) error {
	_, err := db.Exec(`DELETE FROM pending_messages WHERE id = ?`, id)
	return err
}

// ListPending returns queued sends in enqueue order.
func (db *DB) ListPending() ([]model.PendingMessage, error) {
	rows, err := db.Query(`
		SELECT id, conversation_id, sender_id, receiver_id, content, queued_at
		FROM pending_messages
		ORDER BY queued_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []model.PendingMessage
	for rows.Next() {
		var p model.PendingMessage
		if err := rows.Scan(&p.ID, &p.ConversationID, &p.SenderID, &p.ReceiverID, &p.Content, &p.QueuedAt); err != nil {
			return nil, err
		}
		entries = append(entries, p)
	}
	return entries, rows.Err()
}
