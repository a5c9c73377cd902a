// Package workerpool provides a bounded goroutine pool.
//
// The dashboard runs its independent store reads through Run:
//
//	err := workerpool.Run(ctx, 3,
//	    func(ctx context.Context) error { n, err = users.Count(ctx); return err },
//	    func(ctx context.Context) error { m, err2 = orders.Count(ctx); return err2 },
//	)
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolFull is returned by Submit when all workers are busy and the task
// queue is at capacity.
var ErrPoolFull = errors.New("workerpool: pool is full")

// ErrPoolClosed is returned by Submit after Shutdown has been called.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Pool is a bounded goroutine pool.
type Pool struct {
	tasks   chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closeCh chan struct{}
}

// New starts size workers. A size below one is treated as one.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	p := &Pool{
		tasks:   make(chan func(), size*2),
		closeCh: make(chan struct{}),
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task func()) error {
	select {
	case <-p.closeCh:
		return ErrPoolClosed
	default:
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until the task is queued, the pool closes or ctx ends.
func (p *Pool) SubmitWait(ctx context.Context, task func()) error {
	select {
	case <-p.closeCh:
		return ErrPoolClosed
	default:
	}

	select {
	case <-p.closeCh:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- task:
		return nil
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish.
// It is safe to call multiple times.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		close(p.closeCh)
		close(p.tasks)
		p.wg.Wait()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		safeRun(task)
	}
}

func safeRun(task func()) {
	defer func() { recover() }() //nolint:errcheck
	task()
}

// Run executes tasks on a pool of size workers and returns the first error.
// The context handed to tasks is cancelled once any of them fails; a panic
// counts as a failure.
func Run(ctx context.Context, size int, tasks ...func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	p := New(size)
	for _, task := range tasks {
		err := p.SubmitWait(ctx, func() {
			defer func() {
				if r := recover(); r != nil {
					fail(fmt.Errorf("workerpool: task panicked: %v", r))
				}
			}()
			if err := task(ctx); err != nil {
				fail(err)
			}
		})
		if err != nil {
			fail(err)
			break
		}
	}
	p.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	return firstErr
}
