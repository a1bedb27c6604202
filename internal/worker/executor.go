// Package worker runs detached background tasks inside the server process
// and drains them on shutdown.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"prompt-image-studio/internal/logger"
)

var ErrClosed = errors.New("executor is shut down")

// PanicError is what a panicking task is converted into.
type PanicError struct {
	Task  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.Task, e.Value)
}

type Task struct {
	Name string
	Run  func(ctx context.Context) error
	// Recover, if set, receives the PanicError of a panicking Run. Its context
	// is not cancelled by shutdown.
	Recover func(ctx context.Context, err error)
}

type Executor struct {
	log      *logger.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	inFlight atomic.Int64
}

func NewExecutor(log *logger.Logger) *Executor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		log:    log.With("component", "Executor"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit starts the task on its own goroutine. The task's context is
// cancelled only when a shutdown grace period runs out.
func (e *Executor) Submit(task Task) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	e.wg.Add(1)
	e.inFlight.Add(1)
	go e.run(task)
	return nil
}

func (e *Executor) run(task Task) {
	defer e.wg.Done()
	defer e.inFlight.Add(-1)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			perr := &PanicError{Task: task.Name, Value: r, Stack: debug.Stack()}
			e.log.Error("Task panic",
				"task", task.Name,
				"panic", r,
				"stack", string(perr.Stack),
			)
			if task.Recover != nil {
				task.Recover(context.WithoutCancel(e.ctx), perr)
			}
		}
	}()

	if err := task.Run(e.ctx); err != nil {
		e.log.Warn("Task failed", "task", task.Name, "error", err, "duration", time.Since(start))
		return
	}
	e.log.Debug("Task finished", "task", task.Name, "duration", time.Since(start))
}

// InFlight reports how many tasks are running.
func (e *Executor) InFlight() int {
	return int(e.inFlight.Load())
}

// Shutdown stops accepting tasks and waits for running ones. When ctx ends
// first, task contexts are cancelled and ctx.Err() is returned.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.cancel()
		return nil
	case <-ctx.Done():
		e.log.Warn("Shutdown grace period expired, cancelling tasks", "in_flight", e.InFlight())
		e.cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
		}
		return ctx.Err()
	}
}
