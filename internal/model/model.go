// Package model holds the internal conversation/message shapes shared by the
// transport adapter, the offline queue, and the polling synchronizer.
package model

import (
	"strings"
	"time"
)

// PendingIDPrefix marks locally generated placeholder message IDs. Server IDs
// never carry this prefix, so placeholder and persisted messages stay disjoint.
const PendingIDPrefix = "pending-"

// Conversation is a two-participant messaging thread, server-owned.
type Conversation struct {
	ID            string          `json:"id"`
	Participants  [2]string       `json:"participants"`
	LastMessage   *MessageSummary `json:"lastMessage,omitempty"`
	LastMessageAt time.Time       `json:"lastMessageAt"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// MessageSummary is the denormalized last-message preview carried on a
// conversation for list rendering. Only the server updates it.
type MessageSummary struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is a single chat message. Server-confirmed messages carry a
// server-assigned ID; optimistic local messages carry a PendingIDPrefix ID.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	SenderID  string    `json:"senderId"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// IsPending reports whether the message is an optimistic placeholder that has
// not been confirmed by the server yet.
func (m *Message) IsPending() bool {
	return strings.HasPrefix(m.ID, PendingIDPrefix)
}

// PendingMessage is an offline-queued send, internal to the queue manager.
// ID is the placeholder message ID handed back to the caller.
type PendingMessage struct {
	ID             string
	ConversationID string
	SenderID       string
	ReceiverID     string
	Content        string
	QueuedAt       int64 // epoch millis
}
