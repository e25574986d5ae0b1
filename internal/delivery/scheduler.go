package delivery

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs delayed tasks grouped by a key (the conversation id) so that
// every pending task for a conversation can be cancelled at once.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[string]map[uint64]*time.Timer
	next   uint64
	logger *zap.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		tasks:  make(map[string]map[uint64]*time.Timer),
		logger: logger,
	}
}

// Schedule runs fn once after delay and returns the task id.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func()) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	id := s.next
	if s.tasks[key] == nil {
		s.tasks[key] = make(map[uint64]*time.Timer)
	}
	s.tasks[key][id] = time.AfterFunc(delay, func() {
		s.forget(key, id)
		fn()
	})
	s.logger.Debug("task scheduled",
		zap.String("key", key),
		zap.Uint64("task_id", id),
		zap.Duration("delay", delay))
	return id
}

// Cancel stops every pending task under key and returns the ids that were
// stopped before firing. Tasks already running are left alone.
func (s *Scheduler) Cancel(key string) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(key)
}

// CancelAll stops every pending task.
func (s *Scheduler) CancelAll() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stopped []uint64
	for key := range s.tasks {
		stopped = append(stopped, s.cancelLocked(key)...)
	}
	return stopped
}

// pending returns the number of tasks waiting under key.
func (s *Scheduler) pending(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks[key])
}

func (s *Scheduler) cancelLocked(key string) []uint64 {
	var stopped []uint64
	for id, t := range s.tasks[key] {
		if t.Stop() {
			stopped = append(stopped, id)
		}
	}
	delete(s.tasks, key)
	if len(stopped) > 0 {
		s.logger.Debug("tasks cancelled", zap.String("key", key), zap.Int("count", len(stopped)))
	}
	return stopped
}

func (s *Scheduler) forget(key string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks[key], id)
	if len(s.tasks[key]) == 0 {
		delete(s.tasks, key)
	}
}
