// Package schedule runs housekeeping tasks on fixed intervals.
//
//	s := schedule.New()
//	s.Every("ratelimit.sweep", time.Minute, limiter.Sweep)
//	s.Start(ctx)
//	defer s.Wait()
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teastall/teastall/pkg/logger"
)

type entry struct {
	id       string
	interval time.Duration
	task     func()

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
}

func New() *Scheduler { return &Scheduler{} }

// Every registers task under id. A run that is still going when the next tick
// fires is skipped rather than stacked.
func (s *Scheduler) Every(id string, interval time.Duration, task func()) error {
	if interval <= 0 {
		return fmt.Errorf("schedule: %s: interval must be positive", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.id == id {
			return fmt.Errorf("schedule: %s: already registered", id)
		}
	}
	s.entries = append(s.entries, &entry{id: id, interval: interval, task: task})
	return nil
}

// Start launches one ticker per entry; they stop when ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	current := make([]*entry, len(s.entries))
	copy(current, s.entries)
	s.mu.Unlock()

	for _, e := range current {
		s.wg.Add(1)
		go func(e *entry) {
			defer s.wg.Done()
			ticker := time.NewTicker(e.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.dispatch(e)
				}
			}
		}(e)
	}
}

// Wait blocks until every ticker and in-flight run has returned.
func (s *Scheduler) Wait() { s.wg.Wait() }

// RunNow executes id once, synchronously. Used by the CLI and tests.
func (s *Scheduler) RunNow(id string) error {
	s.mu.Lock()
	var found *entry
	for _, e := range s.entries {
		if e.id == id {
			found = e
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		return fmt.Errorf("schedule: %s: not registered", id)
	}
	run(found)
	return nil
}

func (s *Scheduler) dispatch(e *entry) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		run(e)
	}()
}

func run(e *entry) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		logger.Warn("schedule: skipping overlapping task", "id", e.id)
		return
	}
	e.running = true
	e.lastRun = time.Now()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		if r := recover(); r != nil {
			logger.Error("schedule: task panicked", "id", e.id, "panic", r)
		}
	}()

	logger.Debug("schedule: running task", "id", e.id)
	e.task()
}

// List describes the registered entries for CLI display.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, fmt.Sprintf("%s  [%s]", e.id, e.interval))
	}
	return out
}
