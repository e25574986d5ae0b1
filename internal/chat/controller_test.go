package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/murmur/internal/bus"
	"github.com/matheus3301/murmur/internal/delivery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	me    = User{ID: "me", Name: "Me", Email: "me@example.com"}
	alice = User{ID: "alice", Name: "Alice"}
	bob   = User{ID: "bob", Name: "Bob"}
)

type harness struct {
	ctrl      *Controller
	scheduler *manualScheduler
	history   *memoryHistory
	replies   *countingReplies
	bus       *bus.Bus
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		scheduler: newManualScheduler(),
		history:   newMemoryHistory(),
		replies:   &countingReplies{text: "sounds good"},
		bus:       bus.New(),
	}
	h.ctrl = NewController(me, Deps{
		History:   h.history,
		Replies:   h.replies,
		Scheduler: h.scheduler,
		Bus:       h.bus,
	}, opts)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h.ctrl.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) seed(t *testing.T) {
	t.Helper()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	h.history.threads["alice"] = []Message{
		{ID: "a2", SenderID: "me", ReceiverID: "alice", Text: "hi alice", Timestamp: base.Add(2 * time.Minute), Status: StatusSent},
		{ID: "a1", SenderID: "alice", ReceiverID: "me", Text: "hello", Timestamp: base.Add(time.Minute), Status: StatusDelivered},
		{ID: "x1", SenderID: "bob", ReceiverID: "me", Text: "wrong thread", Timestamp: base, Status: StatusDelivered},
	}
	h.history.threads["bob"] = []Message{
		{ID: "b1", SenderID: "bob", ReceiverID: "me", Text: "yo", Timestamp: base, Status: StatusDelivered},
	}
	h.ctrl.AddConversation(Conversation{User: alice, LastMessage: h.history.threads["alice"][0], Unread: 3})
	h.ctrl.AddConversation(Conversation{User: bob, LastMessage: h.history.threads["bob"][0], Unread: 2})
}

func texts(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

func TestSelectConversationResetsUnreadAndLoadsThread(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)

	require.NoError(t, h.ctrl.SelectConversation(context.Background(), "alice"))

	st := h.ctrl.State()
	assert.Equal(t, "alice", st.ActiveConversationID)
	assert.Equal(t, []string{"hello", "hi alice"}, texts(st.Messages), "oldest first, foreign messages dropped")
	for _, m := range st.Messages {
		assert.True(t, m.Between("me", "alice"))
	}

	conv, ok := h.ctrl.Conversation("alice")
	require.True(t, ok)
	assert.Zero(t, conv.Unread)

	other, _ := h.ctrl.Conversation("bob")
	assert.Equal(t, 2, other.Unread)
}

func TestSelectUnknownConversation(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	require.NoError(t, h.ctrl.SelectConversation(context.Background(), "alice"))
	before := h.ctrl.State()

	err := h.ctrl.SelectConversation(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, before, h.ctrl.State())
}

func TestSelectConversationHistoryError(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	h.history.err = errBoom

	err := h.ctrl.SelectConversation(context.Background(), "alice")
	require.ErrorIs(t, err, errBoom)

	assert.Empty(t, h.ctrl.State().ActiveConversationID)
	conv, _ := h.ctrl.Conversation("alice")
	assert.Equal(t, 3, conv.Unread)
}

func TestSelectConversationTwiceIsIdempotent(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	ctx := context.Background()

	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	first := h.ctrl.State().Messages
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	assert.Equal(t, first, h.ctrl.State().Messages)
}

func TestStartNewConversation(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	require.NoError(t, h.ctrl.SelectConversation(context.Background(), "alice"))

	h.ctrl.StartNewConversation()

	st := h.ctrl.State()
	assert.Empty(t, st.ActiveConversationID)
	assert.Empty(t, st.Messages)
	assert.False(t, st.IsTyping)
	assert.Len(t, h.ctrl.Conversations(), 2)
}

func TestSendMessageGuards(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	ctx := context.Background()

	assert.False(t, h.ctrl.SendMessage(ctx, "no active conversation"))

	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	assert.False(t, h.ctrl.SendMessage(ctx, ""))
	assert.False(t, h.ctrl.SendMessage(ctx, "   \t\n"))

	assert.Len(t, h.ctrl.State().Messages, 2)
	assert.Zero(t, h.scheduler.pending())
}

func TestSendMessageAppendsOptimistically(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))

	require.True(t, h.ctrl.SendMessage(ctx, "  are you there?  "))

	st := h.ctrl.State()
	last := st.Messages[len(st.Messages)-1]
	assert.Equal(t, "are you there?", last.Text)
	assert.Equal(t, StatusSent, last.Status)
	assert.Equal(t, "me", last.SenderID)
	assert.Equal(t, "alice", last.ReceiverID)
	assert.True(t, st.IsTyping)

	conv, _ := h.ctrl.Conversation("alice")
	assert.Equal(t, last, conv.LastMessage)
	assert.Equal(t, 1, h.scheduler.pending())
}

func TestEverySendGetsExactlyOneReply(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))

	inputs := []string{"one", " ", "two", "", "three"}
	sent := 0
	for _, in := range inputs {
		if h.ctrl.SendMessage(ctx, in) {
			sent++
		}
	}
	require.Equal(t, 3, sent)
	h.scheduler.fireAll()

	var nSent, nDelivered int
	for _, m := range h.ctrl.State().Messages[2:] {
		switch m.Status {
		case StatusSent:
			nSent++
		case StatusDelivered:
			nDelivered++
			assert.Equal(t, "alice", m.SenderID)
			assert.Equal(t, "me", m.ReceiverID)
		}
	}
	assert.Equal(t, 3, nSent)
	assert.Equal(t, 3, nDelivered)
	assert.False(t, h.ctrl.State().IsTyping)

	conv, _ := h.ctrl.Conversation("alice")
	assert.Equal(t, StatusDelivered, conv.LastMessage.Status)
	assert.Zero(t, conv.Unread)
}

func TestReplyDelayWithinBounds(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))

	for range 20 {
		h.ctrl.SendMessage(ctx, "ping")
	}
	for _, d := range h.scheduler.delays() {
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 3*time.Second)
	}
}

func TestReplyAfterSwitchStaysInOriginConversation(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	require.True(t, h.ctrl.SendMessage(ctx, "brb"))

	require.NoError(t, h.ctrl.SelectConversation(ctx, "bob"))
	bobBefore := h.ctrl.State().Messages
	assert.False(t, h.ctrl.State().IsTyping, "typing belongs to alice's thread")

	h.scheduler.fireAll()

	st := h.ctrl.State()
	assert.Equal(t, "bob", st.ActiveConversationID)
	assert.Equal(t, bobBefore, st.Messages)

	aliceConv, _ := h.ctrl.Conversation("alice")
	assert.Equal(t, "sounds good", aliceConv.LastMessage.Text)
	assert.Equal(t, "alice", aliceConv.LastMessage.SenderID)
	assert.Equal(t, 1, aliceConv.Unread)

	bobConv, _ := h.ctrl.Conversation("bob")
	assert.Zero(t, bobConv.Unread)

	// The reply was recorded, so returning to alice shows it.
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	msgs := h.ctrl.State().Messages
	assert.Equal(t, []string{"hello", "hi alice", "brb", "sounds good"}, texts(msgs))
	aliceConv, _ = h.ctrl.Conversation("alice")
	assert.Zero(t, aliceConv.Unread)
}

func TestReplyAfterNewConversationCountsUnread(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	require.True(t, h.ctrl.SendMessage(ctx, "hold on"))
	h.ctrl.StartNewConversation()

	h.scheduler.fireAll()

	assert.Empty(t, h.ctrl.State().Messages)
	conv, _ := h.ctrl.Conversation("alice")
	assert.Equal(t, 1, conv.Unread)
}

func TestReplyWhenReturningBeforeTimerFires(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	require.True(t, h.ctrl.SendMessage(ctx, "back soon"))
	require.NoError(t, h.ctrl.SelectConversation(ctx, "bob"))
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	assert.True(t, h.ctrl.State().IsTyping)

	h.scheduler.fireAll()

	st := h.ctrl.State()
	assert.Equal(t, "sounds good", st.Messages[len(st.Messages)-1].Text)
	assert.False(t, st.IsTyping)
	conv, _ := h.ctrl.Conversation("alice")
	assert.Zero(t, conv.Unread)
}

func TestCancelPendingOnSwitch(t *testing.T) {
	h := newHarness(t, Options{CancelPendingOnSwitch: true})
	h.seed(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	require.True(t, h.ctrl.SendMessage(ctx, "never mind"))

	require.NoError(t, h.ctrl.SelectConversation(ctx, "bob"))
	assert.Zero(t, h.scheduler.pending())
	h.scheduler.fireAll()

	assert.Zero(t, h.replies.calls)
	conv, _ := h.ctrl.Conversation("alice")
	assert.Equal(t, "never mind", conv.LastMessage.Text)
	assert.Zero(t, conv.Unread)

	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	assert.False(t, h.ctrl.State().IsTyping)
}

func TestCancelPendingOnSwitchAbortsRunningLookup(t *testing.T) {
	h := newHarness(t, Options{CancelPendingOnSwitch: true})
	h.seed(t)
	replies := newBlockingReplies("late")
	h.ctrl.replies = replies
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	require.True(t, h.ctrl.SendMessage(ctx, "hi"))

	fired := make(chan struct{})
	go func() {
		h.scheduler.fireAll()
		close(fired)
	}()
	<-replies.started

	require.NoError(t, h.ctrl.SelectConversation(ctx, "bob"))
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("reply lookup was not cancelled")
	}

	assert.ErrorIs(t, replies.ctxErr(), context.Canceled)
	conv, _ := h.ctrl.Conversation("alice")
	assert.Equal(t, "hi", conv.LastMessage.Text)
	assert.Zero(t, conv.Unread)

	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	assert.False(t, h.ctrl.State().IsTyping)
	assert.Equal(t, []string{"hi alice", "hi"}, texts(h.ctrl.State().Messages)[1:])
}

func TestCloseAbortsRunningLookup(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	replies := newBlockingReplies("late")
	h.ctrl.replies = replies
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	require.True(t, h.ctrl.SendMessage(ctx, "hi"))

	fired := make(chan struct{})
	go func() {
		h.scheduler.fireAll()
		close(fired)
	}()
	<-replies.started

	h.ctrl.Close()
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("reply lookup was not cancelled")
	}
	conv, _ := h.ctrl.Conversation("alice")
	assert.Equal(t, "hi", conv.LastMessage.Text)
}

func TestReplySourceFailureAbandonsReply(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	h.replies.err = errBoom
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))

	events, unsub := h.bus.Subscribe("reply.", 16)
	defer unsub()

	require.True(t, h.ctrl.SendMessage(ctx, "hello?"))
	h.scheduler.fireAll()

	st := h.ctrl.State()
	assert.False(t, st.IsTyping)
	assert.Equal(t, "hello?", st.Messages[len(st.Messages)-1].Text)
	assert.Equal(t, 1, h.replies.calls, "no retry")

	var last delivery.StateChange
	for len(events) > 0 {
		last = (<-events).Payload.(delivery.StateChange)
	}
	assert.Equal(t, delivery.ReplyPending, last.From)
	assert.Equal(t, delivery.Idle, last.To)
}

func TestReplySourceSeesVisibleThread(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	require.True(t, h.ctrl.SendMessage(ctx, "what's up"))
	h.scheduler.fireAll()

	require.Len(t, h.replies.seen, 1)
	assert.Equal(t, []string{"hello", "hi alice", "what's up"}, texts(h.replies.seen[0]))
}

func TestTypingEventsFollowActiveConversation(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))

	events, unsub := h.bus.Subscribe("typing.", 16)
	defer unsub()

	require.True(t, h.ctrl.SendMessage(ctx, "ping"))
	h.scheduler.fireAll()

	var got []bool
	for len(events) > 0 {
		got = append(got, (<-events).Payload.(TypingChanged).Typing)
	}
	assert.Equal(t, []bool{true, false}, got)
}

func TestCloseCancelsPendingReplies(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	require.True(t, h.ctrl.SendMessage(ctx, "bye"))

	h.ctrl.Close()

	assert.Zero(t, h.scheduler.pending())
	assert.False(t, h.ctrl.State().IsTyping)
	assert.False(t, h.ctrl.SendMessage(ctx, "after close"))
	assert.ErrorIs(t, h.ctrl.SelectConversation(ctx, "bob"), ErrClosed)
}

func TestBootstrapSelectsFirstConversation(t *testing.T) {
	h := newHarness(t, Options{})
	convs := []Conversation{{User: bob, Unread: 4}, {User: alice}}

	require.NoError(t, h.ctrl.Bootstrap(context.Background(), convs, ""))

	assert.Equal(t, "bob", h.ctrl.State().ActiveConversationID)
	conv, _ := h.ctrl.Conversation("bob")
	assert.Zero(t, conv.Unread)
}

func TestBootstrapOpensPreferredConversation(t *testing.T) {
	h := newHarness(t, Options{})
	convs := []Conversation{{User: bob, Unread: 4}, {User: alice, Unread: 1}}

	require.NoError(t, h.ctrl.Bootstrap(context.Background(), convs, "alice"))

	assert.Equal(t, "alice", h.ctrl.State().ActiveConversationID)
	conv, _ := h.ctrl.Conversation("bob")
	assert.Equal(t, 4, conv.Unread, "conversations never opened keep their unread count")
	conv, _ = h.ctrl.Conversation("alice")
	assert.Zero(t, conv.Unread)
}

func TestBootstrapIgnoresUnknownPreference(t *testing.T) {
	h := newHarness(t, Options{})
	convs := []Conversation{{User: bob}, {User: alice}}

	require.NoError(t, h.ctrl.Bootstrap(context.Background(), convs, "carol"))

	assert.Equal(t, "bob", h.ctrl.State().ActiveConversationID)
}

func TestSelectConversationLoadsHistoryOutsideLock(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	slow := &gatedHistory{memoryHistory: h.history, entered: make(chan struct{}), release: make(chan struct{})}
	h.ctrl.history = slow

	done := make(chan error, 1)
	go func() { done <- h.ctrl.SelectConversation(context.Background(), "alice") }()
	<-slow.entered

	// State stays readable while the history is loading.
	assert.Empty(t, h.ctrl.State().ActiveConversationID)
	close(slow.release)
	require.NoError(t, <-done)
	assert.Equal(t, "alice", h.ctrl.State().ActiveConversationID)
	assert.Equal(t, []string{"hello", "hi alice"}, texts(h.ctrl.State().Messages))
}

func TestSelectConversationReloadsWhenMessageArrivesDuringLoad(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "bob"))
	require.True(t, h.ctrl.SendMessage(ctx, "ping"))
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))
	h.ctrl.StartNewConversation()

	slow := &gatedHistory{memoryHistory: h.history, entered: make(chan struct{}), release: make(chan struct{})}
	h.ctrl.history = slow
	done := make(chan error, 1)
	go func() { done <- h.ctrl.SelectConversation(ctx, "bob") }()
	<-slow.entered

	// The reply to bob lands after the first read of bob's history.
	h.scheduler.fireAll()
	close(slow.release)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"yo", "ping", "sounds good"}, texts(h.ctrl.State().Messages))
	conv, _ := h.ctrl.Conversation("bob")
	assert.Zero(t, conv.Unread)
}

func TestWithRealScheduler(t *testing.T) {
	replies := &countingReplies{text: "pong"}
	ctrl := NewController(me, Deps{
		History: newMemoryHistory(),
		Replies: replies,
	}, Options{ReplyDelayMin: 5 * time.Millisecond, ReplyDelayMax: 15 * time.Millisecond})
	defer ctrl.Close()
	ctx := context.Background()

	require.NoError(t, ctrl.Bootstrap(ctx, []Conversation{{User: alice}}, ""))
	require.True(t, ctrl.SendMessage(ctx, "ping"))
	assert.True(t, ctrl.State().IsTyping)

	require.Eventually(t, func() bool {
		msgs := ctrl.State().Messages
		return len(msgs) == 2 && msgs[1].Text == "pong"
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, ctrl.State().IsTyping)
}

func TestBackgroundReplySeesStoredThread(t *testing.T) {
	h := newHarness(t, Options{})
	h.seed(t)
	ctx := context.Background()
	require.NoError(t, h.ctrl.SelectConversation(ctx, "bob"))
	require.True(t, h.ctrl.SendMessage(ctx, "still there?"))
	require.NoError(t, h.ctrl.SelectConversation(ctx, "alice"))

	h.scheduler.fireAll()

	require.Len(t, h.replies.seen, 1)
	assert.Equal(t, []string{"yo", "still there?"}, texts(h.replies.seen[0]))
}
