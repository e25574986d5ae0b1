package chat

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/murmur/internal/bus"
	"github.com/matheus3301/murmur/internal/delivery"
	"go.uber.org/zap"
)

const (
	DefaultReplyDelayMin = time.Second
	DefaultReplyDelayMax = 3 * time.Second

	replyTimeout = 30 * time.Second
)

// Options tunes the reply simulation.
type Options struct {
	// ReplyDelayMin and ReplyDelayMax bound the uniform reply delay [min, max).
	ReplyDelayMin time.Duration
	ReplyDelayMax time.Duration
	// CancelPendingOnSwitch drops pending replies of a conversation when the
	// user leaves it. Off by default: replies complete in the background.
	CancelPendingOnSwitch bool
}

// Deps are the collaborators of a Controller. Bus and Logger may be nil.
type Deps struct {
	History   HistoryProvider
	Replies   ReplySource
	Scheduler Scheduler
	Bus       *bus.Bus
	Logger    *zap.Logger
}

type replyTask struct {
	id      uint64
	peer    User
	machine *delivery.Machine
	// cancel aborts the reply lookup once the task's timer has fired.
	cancel context.CancelFunc
}

// Controller is the session's conversation state machine. Every mutation
// happens under one mutex so that user actions and reply timers apply as
// discrete, ordered turns.
type Controller struct {
	mu       sync.Mutex
	self     User
	registry *Registry
	messages MessageStore
	active   string
	typing   map[string]int
	tasks    map[uint64]*replyTask
	// revs counts appends per conversation so that a history load can tell
	// whether it raced with a new message.
	revs     map[string]uint64
	closed   bool

	history   HistoryProvider
	replies   ReplySource
	scheduler Scheduler
	bus       *bus.Bus
	logger    *zap.Logger
	opts      Options

	ctx    context.Context
	cancel context.CancelFunc

	now   func() time.Time
	delay func() time.Duration
}

// NewController creates a controller for the session user self.
func NewController(self User, deps Deps, opts Options) *Controller {
	if opts.ReplyDelayMin <= 0 && opts.ReplyDelayMax <= 0 {
		opts.ReplyDelayMin = DefaultReplyDelayMin
		opts.ReplyDelayMax = DefaultReplyDelayMax
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scheduler := deps.Scheduler
	if scheduler == nil {
		scheduler = delivery.NewScheduler(logger)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		self:      self,
		registry:  NewRegistry(),
		typing:    make(map[string]int),
		tasks:     make(map[uint64]*replyTask),
		revs:      make(map[string]uint64),
		history:   deps.History,
		replies:   deps.Replies,
		scheduler: scheduler,
		bus:       deps.Bus,
		logger:    logger.With(zap.String("self", self.ID)),
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		now:       time.Now,
	}
	c.delay = c.randomDelay
	return c
}

// Self returns the session user.
func (c *Controller) Self() User { return c.self }

// AddConversation registers a conversation. Adding the active conversation
// keeps its unread counter at zero.
func (c *Controller) AddConversation(conv Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.Add(conv)
	if conv.User.ID == c.active {
		_ = c.registry.ResetUnread(c.active)
	}
	c.publishConversationLocked(conv.User.ID)
}

// Bootstrap registers convs and opens preferred when it is one of them,
// otherwise the first conversation. Only the opened conversation has its
// unread counter reset.
func (c *Controller) Bootstrap(ctx context.Context, convs []Conversation, preferred string) error {
	for _, conv := range convs {
		c.AddConversation(conv)
	}
	if len(convs) == 0 {
		return nil
	}
	target := convs[0].User.ID
	if preferred != "" && slices.ContainsFunc(convs, func(conv Conversation) bool { return conv.User.ID == preferred }) {
		target = preferred
	}
	return c.SelectConversation(ctx, target)
}

// Conversations returns the registry ordered by most recent activity.
func (c *Controller) Conversations() []Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.List()
}

// Conversation returns one conversation by id.
func (c *Controller) Conversation(id string) (Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Get(id)
}

// State returns the foreground state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		ActiveConversationID: c.active,
		Messages:             c.messages.Snapshot(),
		IsTyping:             c.typing[c.active] > 0,
	}
}

// SelectConversation makes id the active conversation, resets its unread
// counter and replaces the visible messages with its history.
func (c *Controller) SelectConversation(ctx context.Context, id string) error {
	history, err := c.loadThreadLocking(ctx, id)
	if err != nil {
		return err
	}
	defer c.mu.Unlock()

	prev := c.active
	wasTyping := c.typing[prev] > 0
	if prev != "" && prev != id && c.opts.CancelPendingOnSwitch {
		c.cancelPendingLocked(prev)
		wasTyping = false
	}

	c.active = id
	_ = c.registry.ResetUnread(id)
	c.messages.Replace(history)

	c.logger.Debug("conversation selected",
		zap.String("conversation_id", id),
		zap.Int("messages", len(history)))
	c.bus.Emit(bus.KindConversationSelected, id)
	c.publishConversationLocked(id)
	if typing := c.typing[id] > 0; prev != id || typing != wasTyping {
		c.bus.Emit(bus.KindTypingChanged, TypingChanged{ConversationID: id, Typing: typing})
	}
	return nil
}

// loadThreadLocking fetches the thread of id without holding c.mu, then
// returns with c.mu held. The load is repeated when a message was appended
// to id meanwhile, so the result is never older than the registry.
func (c *Controller) loadThreadLocking(ctx context.Context, id string) ([]Message, error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		conv, ok := c.registry.Get(id)
		rev := c.revs[id]
		c.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("select conversation %q: %w", id, ErrNotFound)
		}

		var history []Message
		if c.history != nil {
			h, err := c.history.History(ctx, c.self, conv.User)
			if err != nil {
				return nil, fmt.Errorf("load history for %q: %w", id, err)
			}
			history = c.threadOf(h, conv.User.ID)
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		if c.revs[id] == rev {
			return history, nil
		}
		c.mu.Unlock()
	}
}

// StartNewConversation clears the active conversation and the visible
// messages. The registry is untouched.
func (c *Controller) StartNewConversation() {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.active
	if prev != "" && c.opts.CancelPendingOnSwitch {
		c.cancelPendingLocked(prev)
	}
	c.active = ""
	c.messages.Clear()
	c.bus.Emit(bus.KindConversationCleared, prev)
	c.bus.Emit(bus.KindTypingChanged, TypingChanged{})
}

// SendMessage appends an outgoing message to the active conversation and
// schedules the simulated reply. It reports false, doing nothing, when text is
// blank or no conversation is active.
func (c *Controller) SendMessage(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || text == "" || c.active == "" {
		return false
	}
	conv, ok := c.registry.Get(c.active)
	if !ok {
		return false
	}

	msg := NewMessage(c.self.ID, conv.User.ID, text, StatusSent, c.now())
	machine := delivery.NewMachine(c.bus, conv.ID, msg.ID)
	_ = machine.Transition(delivery.Sent)
	c.appendLocked(ctx, conv.ID, msg)

	_ = machine.Transition(delivery.ReplyPending)
	c.adjustTypingLocked(conv.ID, 1)

	task := &replyTask{peer: conv.User, machine: machine}
	delay := c.delay()
	task.id = c.scheduler.Schedule(conv.ID, delay, func() { c.deliverReply(task) })
	c.tasks[task.id] = task

	c.logger.Debug("message sent",
		zap.String("conversation_id", conv.ID),
		zap.String("msg_id", msg.ID),
		zap.Duration("reply_delay", delay))
	return true
}

// Close cancels pending replies and in-flight reply lookups.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	for _, id := range c.scheduler.CancelAll() {
		c.abandonLocked(id)
	}
	for id := range c.tasks {
		c.abandonLocked(id)
	}
}

func (c *Controller) deliverReply(t *replyTask) {
	convID := t.machine.ConversationID()

	c.mu.Lock()
	if _, ok := c.tasks[t.id]; !ok {
		c.mu.Unlock()
		return
	}
	var visible []Message
	if convID == c.active {
		visible = c.messages.Snapshot()
	}
	ctx, cancel := context.WithTimeout(c.ctx, replyTimeout)
	defer cancel()
	t.cancel = cancel
	c.mu.Unlock()

	text, err := c.fetchReply(ctx, t.peer, visible)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tasks[t.id]; !ok {
		return
	}
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("empty reply")
	}
	if err != nil || c.closed {
		if err != nil {
			c.logger.Warn("reply not delivered", zap.String("conversation_id", convID), zap.Error(err))
		}
		c.abandonLocked(t.id)
		return
	}
	delete(c.tasks, t.id)
	c.adjustTypingLocked(convID, -1)

	reply := NewMessage(t.peer.ID, c.self.ID, text, StatusDelivered, c.now())
	c.appendLocked(c.ctx, convID, reply)
	if convID != c.active {
		_ = c.registry.IncrementUnread(convID)
		c.publishConversationLocked(convID)
	}
	_ = t.machine.Transition(delivery.Delivered)
	_ = t.machine.Transition(delivery.Idle)
}

func (c *Controller) fetchReply(ctx context.Context, peer User, visible []Message) (string, error) {
	if c.replies == nil {
		return "", fmt.Errorf("no reply source configured")
	}
	if visible == nil && c.history != nil {
		// Background conversation: the visible list belongs to someone else.
		if msgs, err := c.history.History(ctx, c.self, peer); err == nil {
			visible = c.threadOf(msgs, peer.ID)
		}
	}
	return c.replies.Reply(ctx, c.self, peer, visible)
}

// appendLocked records m against conversation convID. The visible message
// list only changes when convID is the active conversation.
func (c *Controller) appendLocked(ctx context.Context, convID string, m Message) {
	active := convID == c.active
	if active {
		c.messages.Append(m)
	}
	c.revs[convID]++
	_ = c.registry.SetLastMessage(convID, m)
	if rec, ok := c.history.(HistoryRecorder); ok {
		if err := rec.Record(ctx, convID, m); err != nil {
			c.logger.Error("failed to record message", zap.String("conversation_id", convID), zap.Error(err))
		}
	}
	c.bus.Emit(bus.KindMessageAppended, MessageAppended{ConversationID: convID, Message: m, Active: active})
	c.publishConversationLocked(convID)
}

func (c *Controller) abandonLocked(id uint64) {
	t, ok := c.tasks[id]
	if !ok {
		return
	}
	delete(c.tasks, id)
	if t.cancel != nil {
		t.cancel()
	}
	c.adjustTypingLocked(t.machine.ConversationID(), -1)
	_ = t.machine.Transition(delivery.Idle)
}

// cancelPendingLocked abandons every reply of convID: timers not yet fired
// and lookups already running.
func (c *Controller) cancelPendingLocked(convID string) {
	for _, id := range c.scheduler.Cancel(convID) {
		c.abandonLocked(id)
	}
	for id, t := range c.tasks {
		if t.machine.ConversationID() == convID {
			c.abandonLocked(id)
		}
	}
}

func (c *Controller) adjustTypingLocked(convID string, delta int) {
	before := c.typing[convID] > 0
	n := max(c.typing[convID]+delta, 0)
	if n == 0 {
		delete(c.typing, convID)
	} else {
		c.typing[convID] = n
	}
	after := n > 0
	if convID == c.active && before != after {
		c.bus.Emit(bus.KindTypingChanged, TypingChanged{ConversationID: convID, Typing: after})
	}
}

func (c *Controller) publishConversationLocked(id string) {
	if conv, ok := c.registry.Get(id); ok {
		c.bus.Emit(bus.KindConversationUpdated, conv)
	}
}

// threadOf keeps the messages exchanged between self and peer, oldest first.
func (c *Controller) threadOf(msgs []Message, peerID string) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Between(c.self.ID, peerID) {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b Message) int {
		return cmp.Compare(a.Timestamp.UnixNano(), b.Timestamp.UnixNano())
	})
	return out
}

func (c *Controller) randomDelay() time.Duration {
	lo, hi := c.opts.ReplyDelayMin, c.opts.ReplyDelayMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int64N(int64(hi-lo)))
}
