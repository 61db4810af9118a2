// Package client composes the transport adapter, offline queue, polling
// synchronizer, connectivity monitor, and local cache into the single facade
// UI code consumes.
package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/SgtClickClack/snipshift-sub007/internal/model"
	"github.com/SgtClickClack/snipshift-sub007/internal/netmon"
	"github.com/SgtClickClack/snipshift-sub007/internal/outbox"
	"github.com/SgtClickClack/snipshift-sub007/internal/poll"
	"github.com/SgtClickClack/snipshift-sub007/internal/store"
	"github.com/SgtClickClack/snipshift-sub007/internal/transport"
)

// Messenger is the messaging entry point for UI code.
type Messenger struct {
	api     transport.API
	queue   *outbox.Queue
	syncer  *poll.Synchronizer
	monitor *netmon.Monitor
	cache   *store.DB // nil disables offline reads
	logger  *zap.Logger
}

// NewMessenger wires the facade. cache may be nil.
func NewMessenger(api transport.API, queue *outbox.Queue, syncer *poll.Synchronizer, monitor *netmon.Monitor, cache *store.DB, logger *zap.Logger) *Messenger {
	return &Messenger{
		api:     api,
		queue:   queue,
		syncer:  syncer,
		monitor: monitor,
		cache:   cache,
		logger:  logger,
	}
}

// Online reports current backend reachability.
func (m *Messenger) Online() bool { return m.monitor.Online() }

// QueueLength returns the number of messages waiting for connectivity.
func (m *Messenger) QueueLength() int { return m.queue.Len() }

// CreateOrGetConversation returns the conversation ID shared with the other
// user, creating it server-side if it does not exist yet.
func (m *Messenger) CreateOrGetConversation(ctx context.Context, otherUserID, jobID string) (string, error) {
	return m.api.CreateOrGetConversation(ctx, otherUserID, jobID)
}

// SendMessage sends through the offline queue: the returned message is either
// the server-confirmed record or an optimistic placeholder.
func (m *Messenger) SendMessage(ctx context.Context, conversationID, senderID, receiverID, content string) (*model.Message, error) {
	return m.queue.SendMessage(ctx, conversationID, senderID, receiverID, content)
}

// MarkMessagesAsRead marks a conversation read, best-effort.
func (m *Messenger) MarkMessagesAsRead(ctx context.Context, conversationID string) error {
	return m.api.MarkRead(ctx, conversationID)
}

// FlushOfflineQueue replays queued sends now instead of waiting for the next
// connectivity event.
func (m *Messenger) FlushOfflineQueue(ctx context.Context) {
	m.queue.Flush(ctx)
}

// Conversations returns the user's conversation list: live from the API when
// online, from the local cache when not.
func (m *Messenger) Conversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	if !m.monitor.Online() && m.cache != nil {
		return m.cache.ListConversations(0)
	}
	convos, err := m.api.FetchConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m.cache != nil {
		for i := range convos {
			if cacheErr := m.cache.UpsertConversation(&convos[i]); cacheErr != nil {
				m.logger.Warn("cache conversation", zap.Error(cacheErr))
				break
			}
		}
	}
	return convos, nil
}

// Messages returns a conversation's messages, live or cached like
// Conversations.
func (m *Messenger) Messages(ctx context.Context, conversationID string) ([]model.Message, error) {
	if !m.monitor.Online() && m.cache != nil {
		return m.cache.ListMessages(conversationID, 0)
	}
	msgs, err := m.api.FetchMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if m.cache != nil {
		if cacheErr := m.cache.ReplaceMessages(conversationID, msgs); cacheErr != nil {
			m.logger.Warn("cache messages", zap.Error(cacheErr))
		}
	}
	return msgs, nil
}

// SubscribeToConversationList polls the user's conversation list every few
// seconds and invokes callback with each snapshot. Cancel with the returned
// function.
func (m *Messenger) SubscribeToConversationList(userID string, callback func([]model.Conversation)) func() {
	return m.syncer.SubscribeToConversationList(userID, callback)
}

// SubscribeToMessages polls a conversation's messages. Cancel with the
// returned function.
func (m *Messenger) SubscribeToMessages(conversationID string, callback func([]model.Message)) func() {
	return m.syncer.SubscribeToMessages(conversationID, callback)
}
