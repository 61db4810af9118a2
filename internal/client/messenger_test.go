package client

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SgtClickClack/snipshift-sub007/internal/bus"
	"github.com/SgtClickClack/snipshift-sub007/internal/model"
	"github.com/SgtClickClack/snipshift-sub007/internal/netmon"
	"github.com/SgtClickClack/snipshift-sub007/internal/outbox"
	"github.com/SgtClickClack/snipshift-sub007/internal/poll"
	"github.com/SgtClickClack/snipshift-sub007/internal/store"
)

type fakeAPI struct {
	convos    []model.Conversation
	messages  []model.Message
	fetches   atomic.Int32
	markReads atomic.Int32
}

func (f *fakeAPI) CreateOrGetConversation(context.Context, string, string) (string, error) {
	return "conv-1", nil
}

func (f *fakeAPI) FetchConversations(context.Context, string) ([]model.Conversation, error) {
	f.fetches.Add(1)
	return f.convos, nil
}

func (f *fakeAPI) FetchMessages(context.Context, string) ([]model.Message, error) {
	f.fetches.Add(1)
	return f.messages, nil
}

func (f *fakeAPI) SendMessage(_ context.Context, conversationID, content string) (*model.Message, error) {
	return &model.Message{
		ID:        "srv-1",
		ChatID:    conversationID,
		SenderID:  "user-a",
		Content:   content,
		Timestamp: time.Now(),
	}, nil
}

func (f *fakeAPI) MarkRead(context.Context, string) error {
	f.markReads.Add(1)
	return nil
}

func testMessenger(t *testing.T, api *fakeAPI) (*Messenger, *netmon.Monitor, *store.DB) {
	t.Helper()
	logger := zap.NewNop()
	db, err := store.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	b := bus.New()
	monitor := netmon.New(netmon.ProbeFunc(func(context.Context) error { return nil }), b, logger, time.Hour)
	queue := outbox.NewQueue(api, monitor.Online, b, db, logger)
	syncer := poll.New(api, db, logger, poll.WithIntervals(time.Hour, time.Hour))
	t.Cleanup(syncer.Close)

	return NewMessenger(api, queue, syncer, monitor, db, logger), monitor, db
}

func TestConversationsOnlineRefreshesCache(t *testing.T) {
	api := &fakeAPI{convos: []model.Conversation{{
		ID:            "conv-1",
		Participants:  [2]string{"user-a", "user-b"},
		LastMessageAt: time.Now(),
		CreatedAt:     time.Now().Add(-time.Hour),
	}}}
	m, _, db := testMessenger(t, api)

	convos, err := m.Conversations(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(convos) != 1 || convos[0].ID != "conv-1" {
		t.Fatalf("got %+v, want conv-1", convos)
	}

	cached, err := db.ListConversations(0)
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(cached) != 1 || cached[0].ID != "conv-1" {
		t.Fatalf("cache holds %+v, want conv-1", cached)
	}
}

func TestConversationsOfflineServedFromCache(t *testing.T) {
	api := &fakeAPI{}
	m, monitor, db := testMessenger(t, api)

	if err := db.UpsertConversation(&model.Conversation{
		ID:            "conv-cached",
		Participants:  [2]string{"user-a", "user-b"},
		LastMessageAt: time.Now(),
		CreatedAt:     time.Now(),
	}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	monitor.SetOnline(false)

	convos, err := m.Conversations(context.Background(), "user-a")
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(convos) != 1 || convos[0].ID != "conv-cached" {
		t.Fatalf("got %+v, want cached conversation", convos)
	}
	if n := api.fetches.Load(); n != 0 {
		t.Errorf("offline read hit the API %d times", n)
	}
}

func TestMessagesOfflineServedFromCache(t *testing.T) {
	api := &fakeAPI{}
	m, monitor, db := testMessenger(t, api)

	if err := db.ReplaceMessages("conv-1", []model.Message{{
		ID:        "srv-9",
		ChatID:    "conv-1",
		SenderID:  "user-b",
		Content:   "see you at ten",
		Timestamp: time.Now(),
	}}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	monitor.SetOnline(false)

	msgs, err := m.Messages(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != "srv-9" {
		t.Fatalf("got %+v, want cached message", msgs)
	}
	if n := api.fetches.Load(); n != 0 {
		t.Errorf("offline read hit the API %d times", n)
	}
}

func TestSendMessageOfflineReturnsPlaceholder(t *testing.T) {
	api := &fakeAPI{}
	m, monitor, _ := testMessenger(t, api)
	monitor.SetOnline(false)

	msg, err := m.SendMessage(context.Background(), "conv-1", "user-a", "user-b", "hello")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !msg.IsPending() {
		t.Errorf("offline send returned non-placeholder ID %q", msg.ID)
	}
	if got := m.QueueLength(); got != 1 {
		t.Errorf("QueueLength = %d, want 1", got)
	}
}

func TestMarkMessagesAsReadDelegates(t *testing.T) {
	api := &fakeAPI{}
	m, _, _ := testMessenger(t, api)

	if err := m.MarkMessagesAsRead(context.Background(), "conv-1"); err != nil {
		t.Fatalf("MarkMessagesAsRead: %v", err)
	}
	if n := api.markReads.Load(); n != 1 {
		t.Errorf("MarkRead called %d times, want 1", n)
	}
}
