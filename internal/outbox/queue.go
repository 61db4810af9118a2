// Package outbox guarantees outgoing messages are not lost to transient
// connectivity loss. Sends that cannot reach the server are queued in FIFO
// order and replayed when the network comes back; callers get an optimistic
// placeholder message immediately instead of blocking on retries.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SgtClickClack/snipshift-sub007/internal/bus"
	"github.com/SgtClickClack/snipshift-sub007/internal/model"
	"github.com/SgtClickClack/snipshift-sub007/internal/transport"
)

// OnlineFunc reports current connectivity; typically netmon.Monitor.Online.
type OnlineFunc func() bool

// PendingStore is the optional durable copy of the queue. All methods are
// best-effort from the queue's point of view: storage failures are logged,
// never allowed to break the send path.
type PendingStore interface {
	SavePending(p *model.PendingMessage) error
	DeletePending(id string) error
	ListPending() ([]model.PendingMessage, error)
}

// Queue is the offline queue manager.
type Queue struct {
	api    transport.API
	online OnlineFunc
	bus    *bus.Bus
	store  PendingStore // nil disables persistence
	logger *zap.Logger

	mu       sync.Mutex
	entries  []model.PendingMessage
	flushing bool
	cancel   context.CancelFunc
}

// NewQueue creates an offline queue. store may be nil.
func NewQueue(api transport.API, online OnlineFunc, b *bus.Bus, store PendingStore, logger *zap.Logger) *Queue {
	return &Queue{
		api:    api,
		online: online,
		bus:    b,
		store:  store,
		logger: logger,
	}
}

// Start reloads any persisted pending sends and begins listening for the
// connectivity-restored signal, which triggers a flush.
func (q *Queue) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	q.mu.Lock()
	q.cancel = cancel
	q.mu.Unlock()

	q.reload()

	ch, unsub := q.bus.Subscribe(bus.KindNetworkOnline, 16)
	go func() {
		defer unsub()
		for {
			select {
			case <-ch:
				q.Flush(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the connectivity listener.
func (q *Queue) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Len returns the number of queued sends.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// SendMessage delivers a message now if possible, otherwise queues it and
// returns an optimistic placeholder. Server rejections (a reachable server
// answering with an error status) are returned to the caller unqueued:
// replaying an invalid request would fail the same way.
func (q *Queue) SendMessage(ctx context.Context, conversationID, senderID, receiverID, content string) (*model.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("message content must not be empty")
	}

	if !q.online() {
		return q.enqueue(conversationID, senderID, receiverID, content), nil
	}

	msg, err := q.api.SendMessage(ctx, conversationID, content)
	if err == nil {
		return msg, nil
	}
	if !transport.IsNetworkError(err) {
		return nil, err
	}

	q.logger.Info("send failed at network level, queueing",
		zap.String("conversation_id", conversationID), zap.Error(err))
	return q.enqueue(conversationID, senderID, receiverID, content), nil
}

func (q *Queue) enqueue(conversationID, senderID, receiverID, content string) *model.Message {
	now := time.Now()
	entry := model.PendingMessage{
		ID:             model.PendingIDPrefix + uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        content,
		QueuedAt:       now.UnixMilli(),
	}

	q.mu.Lock()
	q.entries = append(q.entries, entry)
	q.mu.Unlock()

	if q.store != nil {
		if err := q.store.SavePending(&entry); err != nil {
			q.logger.Warn("persist pending message", zap.Error(err))
		}
	}
	q.bus.Publish(bus.Event{Kind: bus.KindMessageQueued, Timestamp: now, Payload: entry})

	return &model.Message{
		ID:        entry.ID,
		ChatID:    conversationID,
		SenderID:  senderID,
		Content:   content,
		Timestamp: now,
		Read:      false,
	}
}

// Flush replays queued sends strictly in enqueue order. The first failure
// stops the pass and leaves the failed entry and everything behind it for a
// later trigger; a flush already in progress makes this call a no-op, so
// redundant connectivity events cannot double-send.
func (q *Queue) Flush(ctx context.Context) {
	q.mu.Lock()
	if q.flushing || len(q.entries) == 0 {
		q.mu.Unlock()
		return
	}
	q.flushing = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.flushing = false
		q.mu.Unlock()
	}()

	for {
		q.mu.Lock()
		if len(q.entries) == 0 {
			q.mu.Unlock()
			return
		}
		head := q.entries[0]
		q.mu.Unlock()

		msg, err := q.api.SendMessage(ctx, head.ConversationID, head.Content)
		if err != nil {
			q.logger.Warn("flush halted",
				zap.String("pending_id", head.ID),
				zap.Int("remaining", q.Len()),
				zap.Error(err))
			q.bus.Publish(bus.Event{Kind: bus.KindMessageFailed, Timestamp: time.Now(), Payload: head})
			return
		}

		q.mu.Lock()
		q.entries = q.entries[1:]
		q.mu.Unlock()

		if q.store != nil {
			if err := q.store.DeletePending(head.ID); err != nil {
				q.logger.Warn("drop persisted pending message", zap.Error(err))
			}
		}
		q.logger.Info("queued message delivered",
			zap.String("pending_id", head.ID), zap.String("server_id", msg.ID))
		q.bus.Publish(bus.Event{Kind: bus.KindMessageSent, Timestamp: time.Now(), Payload: msg})
	}
}

// reload restores persisted pending sends into the in-memory queue.
func (q *Queue) reload() {
	if q.store == nil {
		return
	}
	entries, err := q.store.ListPending()
	if err != nil {
		q.logger.Warn("reload pending messages", zap.Error(err))
		return
	}
	if len(entries) == 0 {
		return
	}
	q.mu.Lock()
	q.entries = append(entries, q.entries...)
	q.mu.Unlock()
	q.logger.Info("restored pending messages", zap.Int("count", len(entries)))
}
