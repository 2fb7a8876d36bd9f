// Package swarm runs tasks on a fixed-size pool of workers.
package swarm

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	// ErrStopped is returned when submitting to a stopped engine.
	ErrStopped = errors.New("swarm: engine stopped")
	// ErrTaskPanic wraps a panic recovered from a task.
	ErrTaskPanic = errors.New("swarm: task panicked")
)

// Task represents a unit of work for the swarm.
type Task func(ctx context.Context) error

// Engine manages the worker pool. Workers are started once by Start and live
// until Stop; MaxWorkers is read at Start.
type Engine struct {
	MaxWorkers int

	tasks   chan Task
	wg      sync.WaitGroup
	pending sync.WaitGroup

	mu      sync.Mutex
	active  int
	started bool
	stopped bool
	stats   Stats
	onError func(error)
}

// Stats holds runtime statistics for the engine.
type Stats struct {
	ActiveWorkers  int
	Concurrency    int
	TasksCompleted int64
	TasksFailed    int64
	Panics         int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithErrorHandler is called, from the worker goroutine, for every task error.
func WithErrorHandler(fn func(error)) Option {
	return func(e *Engine) { e.onError = fn }
}

// NewEngine creates a new Swarm Engine with workers goroutines (at least one).
func NewEngine(workers int, opts ...Option) *Engine {
	if workers < 1 {
		workers = 1
	}
	e := &Engine{
		MaxWorkers: workers,
		tasks:      make(chan Task, workers*2),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start spawns the workers. Calling it twice is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.stopped {
		return
	}
	e.started = true
	for i := 0; i < e.MaxWorkers; i++ {
		e.wg.Add(1)
		go e.worker(ctx)
	}
}

// Submit queues t, blocking while every worker is busy and the buffer is full.
func (e *Engine) Submit(ctx context.Context, t Task) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	e.pending.Add(1)
	e.mu.Unlock()

	select {
	case e.tasks <- t:
		return nil
	case <-ctx.Done():
		e.pending.Done()
		return ctx.Err()
	}
}

// Wait blocks until every submitted task has finished.
func (e *Engine) Wait() {
	e.pending.Wait()
}

// Stop drains outstanding tasks and shuts the workers down.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.mu.Unlock()

	e.pending.Wait()
	close(e.tasks)
	e.wg.Wait()
}

// GetStats returns current engine stats.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.ActiveWorkers = e.active
	s.Concurrency = e.MaxWorkers
	return s
}

func (e *Engine) worker(ctx context.Context) {
	defer e.wg.Done()

	for task := range e.tasks {
		e.mu.Lock()
		e.active++
		e.mu.Unlock()

		var err error
		if err = ctx.Err(); err == nil {
			err = e.run(ctx, task)
		}

		e.mu.Lock()
		e.active--
		e.stats.TasksCompleted++
		if err != nil {
			e.stats.TasksFailed++
			if errors.Is(err, ErrTaskPanic) {
				e.stats.Panics++
			}
		}
		e.mu.Unlock()

		if err != nil && e.onError != nil {
			e.onError(err)
		}
		e.pending.Done()
	}
}

func (e *Engine) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrTaskPanic, r, debug.Stack())
		}
	}()
	return task(ctx)
}
