package chat

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// manualScheduler records tasks and runs them only when a test fires them.
type manualScheduler struct {
	mu    sync.Mutex
	next  uint64
	tasks map[uint64]manualTask
}

type manualTask struct {
	key   string
	delay time.Duration
	fn    func()
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{tasks: make(map[uint64]manualTask)}
}

func (s *manualScheduler) Schedule(key string, delay time.Duration, fn func()) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.tasks[s.next] = manualTask{key: key, delay: delay, fn: fn}
	return s.next
}

func (s *manualScheduler) Cancel(key string) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint64
	for id, t := range s.tasks {
		if t.key == key {
			ids = append(ids, id)
			delete(s.tasks, id)
		}
	}
	return ids
}

func (s *manualScheduler) CancelAll() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint64
	for id := range s.tasks {
		ids = append(ids, id)
	}
	clear(s.tasks)
	return ids
}

func (s *manualScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *manualScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Duration
	for _, t := range s.tasks {
		out = append(out, t.delay)
	}
	return out
}

// fireAll runs every pending task in scheduling order.
func (s *manualScheduler) fireAll() {
	s.mu.Lock()
	ids := make([]uint64, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	var fns []func()
	for _, id := range ids {
		fns = append(fns, s.tasks[id].fn)
		delete(s.tasks, id)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// memoryHistory serves fixed histories and keeps recorded messages.
type memoryHistory struct {
	mu      sync.Mutex
	threads map[string][]Message
	calls   int
	err     error
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{threads: make(map[string][]Message)}
}

func (h *memoryHistory) History(_ context.Context, _, peer User) ([]Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	return slices.Clone(h.threads[peer.ID]), nil
}

func (h *memoryHistory) Record(_ context.Context, conversationID string, m Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.threads[conversationID] = append(h.threads[conversationID], m)
	return nil
}

// countingReplies answers with a fixed text or error.
type countingReplies struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	seen  [][]Message
}

func (r *countingReplies) Reply(_ context.Context, _, _ User, history []Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.seen = append(r.seen, history)
	if r.err != nil {
		return "", r.err
	}
	return r.text, nil
}

// blockingReplies signals when a lookup starts and then waits for the
// context to be cancelled.
type blockingReplies struct {
	text    string
	started chan struct{}
	once    sync.Once

	mu  sync.Mutex
	err error
}

func newBlockingReplies(text string) *blockingReplies {
	return &blockingReplies{text: text, started: make(chan struct{})}
}

func (r *blockingReplies) Reply(ctx context.Context, _, _ User, _ []Message) (string, error) {
	r.once.Do(func() { close(r.started) })
	select {
	case <-ctx.Done():
		r.mu.Lock()
		r.err = ctx.Err()
		r.mu.Unlock()
		return "", ctx.Err()
	case <-time.After(5 * time.Second):
		return r.text, nil
	}
}

func (r *blockingReplies) ctxErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// gatedHistory reads the thread and then holds its first answer until release
// is closed.
type gatedHistory struct {
	*memoryHistory
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedHistory) History(ctx context.Context, self, peer User) ([]Message, error) {
	msgs, err := g.memoryHistory.History(ctx, self, peer)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return msgs, err
}

var errBoom = errors.New("boom")
