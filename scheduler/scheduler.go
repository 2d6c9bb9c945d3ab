// Package scheduler reruns jobs such as suite runs on fixed intervals.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// JobFn is one run of a scheduled job. ctx is canceled when the job is
// removed or the scheduler stops.
type JobFn func(ctx context.Context)

// Scheduler runs named jobs on fixed intervals. A tick that arrives while
// the previous run of the same job is still going is skipped.
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *zap.Logger
}

type job struct {
	name    string
	cancel  context.CancelFunc
	running atomic.Bool
	runs    atomic.Int64
	skipped atomic.Int64
}

// New creates a Scheduler whose jobs stop when parent is canceled.
func New(parent context.Context, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scheduler{
		jobs:   make(map[string]*job),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Every registers fn to run every interval. With immediate set the first
// run starts right away. A job with the same name is replaced.
func (s *Scheduler) Every(name string, interval time.Duration, immediate bool, fn JobFn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[name]; ok {
		old.cancel()
		delete(s.jobs, name)
	}
	ctx, cancel := context.WithCancel(s.ctx)
	j := &job{name: name, cancel: cancel}
	s.jobs[name] = j

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		if immediate {
			s.fire(ctx, j, fn)
		}
		for {
			select {
			case <-ticker.C:
				s.fire(ctx, j, fn)
			case <-ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("job scheduled", zap.String("job", name), zap.Duration("interval", interval))
}

// fire runs fn unless the previous run is still in progress.
func (s *Scheduler) fire(ctx context.Context, j *job, fn JobFn) {
	if !j.running.CompareAndSwap(false, true) {
		j.skipped.Add(1)
		s.logger.Debug("job still running, tick skipped", zap.String("job", j.name))
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer j.running.Store(false)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("job panicked",
					zap.String("job", j.name),
					zap.Any("recover", r))
			}
		}()
		j.runs.Add(1)
		fn(ctx)
	}()
}

// Remove cancels a job by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[name]; ok {
		j.cancel()
		delete(s.jobs, name)
	}
}

// Stop cancels every job and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Done is closed once the scheduler is stopping.
func (s *Scheduler) Done() <-chan struct{} { return s.ctx.Done() }

// Jobs returns the registered job names in order.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns how often a job ran and how many ticks it skipped.
func (s *Scheduler) Stats(name string) (runs, skipped int64, ok bool) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return 0, 0, false
	}
	return j.runs.Load(), j.skipped.Load(), true
}
