// Package poll approximates real-time updates over the stateless REST
// transport: each subscription re-fetches its resource on a fixed cadence and
// hands the snapshot to a caller-supplied callback. A later snapshot always
// reflects server truth, which is how optimistic placeholders get reconciled.
package poll

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SgtClickClack/snipshift-sub007/internal/model"
	"github.com/SgtClickClack/snipshift-sub007/internal/transport"
)

// Cache receives poll snapshots for offline reads. Nil disables caching.
type Cache interface {
	UpsertConversation(c *model.Conversation) error
	ReplaceMessages(conversationID string, msgs []model.Message) error
}

const (
	defaultConversationInterval = 3 * time.Second
	defaultMessageInterval      = 2 * time.Second
)

// Synchronizer manages one interval timer per subscribed resource. Keys are
// resource-type + ID; subscribing twice on the same key replaces the earlier
// timer instead of stacking a second one.
type Synchronizer struct {
	api    transport.API
	cache  Cache
	logger *zap.Logger

	conversationInterval time.Duration
	messageInterval      time.Duration

	mu   sync.Mutex
	subs map[string]*subscription
}

type subscription struct {
	done chan struct{}
	once sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithIntervals overrides the poll cadences. Zero keeps the default.
func WithIntervals(conversation, message time.Duration) Option {
	return func(s *Synchronizer) {
		if conversation > 0 {
			s.conversationInterval = conversation
		}
		if message > 0 {
			s.messageInterval = message
		}
	}
}

// New creates a synchronizer. cache may be nil.
func New(api transport.API, cache Cache, logger *zap.Logger, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		api:                  api,
		cache:                cache,
		logger:               logger,
		conversationInterval: defaultConversationInterval,
		messageInterval:      defaultMessageInterval,
		subs:                 make(map[string]*subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubscribeToConversationList polls the user's conversation list, invoking
// callback with each snapshot. The first cycle runs immediately. The returned
// function cancels the subscription and is safe to call more than once.
func (s *Synchronizer) SubscribeToConversationList(userID string, callback func([]model.Conversation)) func() {
	return s.subscribe("conversations:"+userID, s.conversationInterval, func(done chan struct{}) {
		convos, err := s.api.FetchConversations(context.Background(), userID)
		if err != nil {
			s.logger.Warn("conversation poll failed", zap.String("user_id", userID), zap.Error(err))
			return
		}
		if cancelled(done) {
			return
		}
		if s.cache != nil {
			for i := range convos {
				if err := s.cache.UpsertConversation(&convos[i]); err != nil {
					s.logger.Warn("cache conversation snapshot", zap.Error(err))
					break
				}
			}
		}
		callback(convos)
	})
}

// SubscribeToMessages polls a conversation's messages on a tighter cadence,
// since an open conversation view needs faster perceived responsiveness than
// the list. Same contract as SubscribeToConversationList.
func (s *Synchronizer) SubscribeToMessages(conversationID string, callback func([]model.Message)) func() {
	return s.subscribe("messages:"+conversationID, s.messageInterval, func(done chan struct{}) {
		msgs, err := s.api.FetchMessages(context.Background(), conversationID)
		if err != nil {
			s.logger.Warn("message poll failed", zap.String("conversation_id", conversationID), zap.Error(err))
			return
		}
		if cancelled(done) {
			return
		}
		if s.cache != nil {
			if err := s.cache.ReplaceMessages(conversationID, msgs); err != nil {
				s.logger.Warn("cache message snapshot", zap.Error(err))
			}
		}
		callback(msgs)
	})
}

// ActiveSubscriptions returns the number of live timers.
func (s *Synchronizer) ActiveSubscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close cancels every subscription.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[string]*subscription)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.stop()
	}
}

func (s *Synchronizer) subscribe(key string, interval time.Duration, tick func(done chan struct{})) func() {
	sub := &subscription{done: make(chan struct{})}

	s.mu.Lock()
	if prev, ok := s.subs[key]; ok {
		// Replace-if-exists: cancel the old timer before installing the new one.
		prev.stop()
	}
	s.subs[key] = sub
	s.mu.Unlock()

	go func() {
		tick(sub.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-sub.done:
				return
			case <-ticker.C:
				// Ticks are not chained to prior tick completion; a slow fetch
				// delays only its own callback, never the next tick.
				go tick(sub.done)
			}
		}
	}()

	return func() {
		sub.stop()
		s.mu.Lock()
		if s.subs[key] == sub {
			delete(s.subs, key)
		}
		s.mu.Unlock()
	}
}

func cancelled(done chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}
