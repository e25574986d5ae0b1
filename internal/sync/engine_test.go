package sync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/murmur/internal/bus"
	"github.com/matheus3301/murmur/internal/chat"
	"github.com/matheus3301/murmur/internal/store"
	"go.uber.org/zap"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func conversation(id string, unread int, text string, ts int64) chat.Conversation {
	return chat.Conversation{
		User:   chat.User{ID: id, Name: "User " + id},
		Unread: unread,
		LastMessage: chat.Message{
			ID: "m-" + id, SenderID: id, ReceiverID: "me", Text: text,
			Timestamp: time.UnixMilli(ts), Status: chat.StatusDelivered,
		},
	}
}

func TestEngineSaveConversationIdempotent(t *testing.T) {
	db := testDB(t)
	e := NewEngine(db, bus.New(), nil)

	c := conversation("a", 2, "v1", 1000)
	if err := e.SaveConversation(c); err != nil {
		t.Fatal(err)
	}
	c.Unread = 0
	c.LastMessage.Text = "v2"
	if err := e.SaveConversation(c); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetConversation("a")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("conversation not stored")
	}
	if got.Unread != 0 || got.LastMessage.Text != "v2" {
		t.Errorf("got unread=%d text=%q, want 0 and v2", got.Unread, got.LastMessage.Text)
	}
	n, _ := db.ConversationCount()
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestEngineSaveAll(t *testing.T) {
	db := testDB(t)
	e := NewEngine(db, bus.New(), nil)

	err := e.SaveAll([]chat.Conversation{
		conversation("a", 0, "one", 1000),
		conversation("b", 1, "two", 2000),
	})
	if err != nil {
		t.Fatal(err)
	}

	convs, err := db.ListConversations()
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 || convs[0].ID != "b" {
		t.Fatalf("got %d conversations, want 2 with b first", len(convs))
	}
}

// TestEngineBusSubscription verifies the engine persists what the controller publishes.
func TestEngineBusSubscription(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	logger, _ := zap.NewDevelopment()
	e := NewEngine(db, b, logger)

	e.Start(context.Background())

	b.Emit(bus.KindConversationUpdated, conversation("bus-test", 3, "from bus", 5000))
	b.Emit(bus.KindConversationSelected, "bus-test")
	b.Emit(bus.KindMessageAppended, "ignored")

	// Stop drains the subscription before returning.
	e.Stop()

	got, err := db.GetConversation("bus-test")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Unread != 3 {
		t.Fatalf("got %+v, want stored conversation with unread=3", got)
	}

	active, err := NewCheckpoints(db).ActiveConversation()
	if err != nil {
		t.Fatal(err)
	}
	if active != "bus-test" {
		t.Errorf("active = %q, want bus-test", active)
	}
}

func TestEngineClearedResetsActive(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	e := NewEngine(db, b, nil)
	e.Start(context.Background())

	b.Emit(bus.KindConversationSelected, "a")
	b.Emit(bus.KindConversationCleared, "a")
	e.Stop()

	active, err := NewCheckpoints(db).ActiveConversation()
	if err != nil {
		t.Fatal(err)
	}
	if active != "" {
		t.Errorf("active = %q, want empty", active)
	}
}

func TestEngineStopWithoutStart(t *testing.T) {
	e := NewEngine(testDB(t), bus.New(), nil)
	e.Stop()
}

func TestCheckpointMissingKey(t *testing.T) {
	v, err := NewCheckpoints(testDB(t)).Get("nope")
	if err != nil {
		t.Fatal(err)
	}
	if v != "" {
		t.Errorf("value = %q, want empty", v)
	}
}
