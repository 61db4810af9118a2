package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/SgtClickClack/snipshift-sub007/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestConversationUpsertAndList(t *testing.T) {
	db := testDB(t)

	older := model.Conversation{
		ID:            "conv-1",
		Participants:  [2]string{"user-a", "user-b"},
		LastMessageAt: time.UnixMilli(1000),
		CreatedAt:     time.UnixMilli(500),
	}
	newer := model.Conversation{
		ID:           "conv-2",
		Participants: [2]string{"user-a", "user-c"},
		LastMessage: &model.MessageSummary{
			ID: "msg-9", SenderID: "user-c", Content: "see you at the shop",
		},
		LastMessageAt: time.UnixMilli(2000),
		CreatedAt:     time.UnixMilli(600),
	}
	for _, c := range []*model.Conversation{&older, &newer} {
		if err := db.UpsertConversation(c); err != nil {
			t.Fatal(err)
		}
	}
	// Upserting again must not duplicate.
	if err := db.UpsertConversation(&newer); err != nil {
		t.Fatal(err)
	}

	convos, err := db.ListConversations(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(convos) != 2 {
		t.Fatalf("got %d conversations, want 2", len(convos))
	}
	if convos[0].ID != "conv-2" {
		t.Errorf("first conversation = %s, want conv-2 (most recent activity)", convos[0].ID)
	}
	if convos[0].LastMessage == nil || convos[0].LastMessage.Content != "see you at the shop" {
		t.Errorf("last message summary not preserved: %+v", convos[0].LastMessage)
	}
}

func TestMessageUpsertIdempotent(t *testing.T) {
	db := testDB(t)

	m := model.Message{
		ID: "msg-1", ChatID: "conv-1", SenderID: "user-a",
		Content: "hello", Timestamp: time.UnixMilli(1000),
	}
	if err := db.UpsertMessage(&m); err != nil {
		t.Fatal(err)
	}
	m.Read = true
	if err := db.UpsertMessage(&m); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("conv-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (idempotent)", len(msgs))
	}
	if !msgs[0].Read {
		t.Error("read flag not updated on re-upsert")
	}
}

func TestReplaceMessagesDropsPlaceholders(t *testing.T) {
	db := testDB(t)

	placeholder := model.Message{
		ID: model.PendingIDPrefix + "abc", ChatID: "conv-1",
		SenderID: "user-a", Content: "hello", Timestamp: time.UnixMilli(1000),
	}
	if err := db.UpsertMessage(&placeholder); err != nil {
		t.Fatal(err)
	}

	snapshot := []model.Message{
		{ID: "msg-42", ChatID: "conv-1", SenderID: "user-a", Content: "hello", Timestamp: time.UnixMilli(1001)},
	}
	if err := db.ReplaceMessages("conv-1", snapshot); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("conv-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ID != "msg-42" {
		t.Fatalf("snapshot did not supersede placeholder: %+v", msgs)
	}
}

func TestPendingRoundTripPreservesOrder(t *testing.T) {
	db := testDB(t)

	for i, id := range []string{"pending-1", "pending-2", "pending-3"} {
		p := model.PendingMessage{
			ID:             id,
			ConversationID: "conv-1",
			SenderID:       "user-a",
			ReceiverID:     "user-b",
			Content:        "queued",
			QueuedAt:       int64(1000 + i),
		}
		if err := db.SavePending(&p); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := db.ListPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d pending, want 3", len(entries))
	}
	for i, want := range []string{"pending-1", "pending-2", "pending-3"} {
		if entries[i].ID != want {
			t.Errorf("entries[%d].ID = %s, want %s", i, entries[i].ID, want)
		}
	}

	if err := db.DeletePending("pending-1"); err != nil {
		t.Fatal(err)
	}
	entries, err = db.ListPending()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].ID != "pending-2" {
		t.Errorf("head after delete = %+v, want pending-2 first", entries)
	}
}
