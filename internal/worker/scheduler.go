package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is delayed work. The context carries the task timeout.
type Task func(ctx context.Context) error

// Scheduler runs keyed tasks after a delay without blocking the caller.
// Scheduling a key that is already pending replaces the earlier task.
type Scheduler struct {
	clock       Clock
	logger      *zap.Logger
	taskTimeout time.Duration

	mu      sync.Mutex
	pending map[string]*pendingTask
	stopped bool
	wg      sync.WaitGroup
}

type pendingTask struct {
	timer Timer
	task  Task
}

// NewScheduler creates a scheduler; a nil clock means the wall clock.
func NewScheduler(clock Clock, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		clock:       clock,
		logger:      logger,
		taskTimeout: 30 * time.Second,
		pending:     make(map[string]*pendingTask),
	}
}

// Schedule runs task once delay has elapsed. It returns false when the scheduler is stopped.
func (s *Scheduler) Schedule(key string, delay time.Duration, task Task) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.logger.Warn("scheduler stopped; task dropped", zap.String("key", key))
		return false
	}
	if prev, ok := s.pending[key]; ok {
		if prev.timer.Stop() {
			s.wg.Done()
		}
		delete(s.pending, key)
	}
	s.wg.Add(1)

	entry := &pendingTask{task: task}
	fire := func() {
		defer s.wg.Done()
		s.mu.Lock()
		if cur, ok := s.pending[key]; ok && cur == entry {
			delete(s.pending, key)
		}
		s.mu.Unlock()
		s.run(key, task)
	}
	if delay <= 0 {
		s.mu.Unlock()
		go fire()
		return true
	}
	entry.timer = s.clock.AfterFunc(delay, fire)
	s.pending[key] = entry
	s.mu.Unlock()

	s.logger.Debug("task scheduled", zap.String("key", key), zap.Duration("delay", delay))
	return true
}

// Cancel prevents a pending task from running.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.pending[key]
	if !ok {
		return false
	}
	delete(s.pending, key)
	if entry.timer.Stop() {
		s.wg.Done()
		return true
	}
	return false
}

// Pending reports how many tasks are waiting.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop runs every task still waiting without further delay, then waits
// for all tasks to finish. Later Schedule calls are refused.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for key, entry := range s.pending {
		delete(s.pending, key)
		if !entry.timer.Stop() {
			// Already firing; its own goroutine runs it.
			continue
		}
		s.logger.Info("running pending task early at shutdown", zap.String("key", key))
		go func(key string, task Task) {
			defer s.wg.Done()
			s.run(key, task)
		}(key, entry.task)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) run(key string, task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
	defer cancel()
	if err := task(ctx); err != nil {
		s.logger.Error("scheduled task failed", zap.String("key", key), zap.Error(err))
		return
	}
	s.logger.Debug("scheduled task done", zap.String("key", key))
}
