// Package scheduler runs named periodic and one-shot tasks for the runtime:
// the quest timer driver and the autosave loop.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskFn is a scheduled task. dt is the time since the previous run of the
// same ticker, or the configured delay for one-shot tasks.
type TaskFn func(ctx context.Context, dt time.Duration)

// Scheduler owns a set of named tickers and delays. Tasks run on their own
// goroutines; callers serialize access to shared state themselves.
type Scheduler struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	tickers map[string]context.CancelFunc
	timers  map[string]*time.Timer
	logger  *zap.Logger
}

// New creates a Scheduler. Stop cancels every task.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:     ctx,
		cancel:  cancel,
		tickers: make(map[string]context.CancelFunc),
		timers:  make(map[string]*time.Timer),
		logger:  logger,
	}
}

func (s *Scheduler) run(name string, ctx context.Context, dt time.Duration, fn TaskFn) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler task panicked", zap.String("task", name), zap.Any("recover", r))
		}
	}()
	fn(ctx, dt)
}

// AddTicker runs fn every interval until removed or stopped. A task with
// the same name is replaced.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stop, ok := s.tickers[name]; ok {
		stop()
	}
	ctx, stop := context.WithCancel(s.ctx)
	s.tickers[name] = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case now := <-ticker.C:
				dt := now.Sub(last)
				last = now
				s.run(name, ctx, dt, fn)
			case <-ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
}

// AddDelay runs fn once after delay. A pending delay with the same name is
// cancelled.
func (s *Scheduler) AddDelay(name string, delay time.Duration, fn TaskFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[name]; ok {
		old.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer func() {
			s.mu.Lock()
			if s.timers[name] == t {
				delete(s.timers, name)
			}
			s.mu.Unlock()
		}()
		if s.ctx.Err() != nil {
			return
		}
		s.run(name, s.ctx, delay, fn)
	})
	s.timers[name] = t
}

// Remove stops a ticker or delay by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stop, ok := s.tickers[name]; ok {
		stop()
		delete(s.tickers, name)
	}
	if t, ok := s.timers[name]; ok {
		t.Stop()
		delete(s.timers, name)
	}
}

// Stop cancels every task. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
}

// ListTickers returns the registered ticker names in order.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tickers))
	for name := range s.tickers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
