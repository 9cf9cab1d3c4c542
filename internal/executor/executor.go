// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package executor

import (
	"sync"

	"github.com/jeranaias/ntsc-tui/internal/repaint"
)

// =============================================================================
// TASK TYPES
// =============================================================================

// Action mutates application state. It is produced by a completed task and
// invoked exactly once by the driving loop. A task that failed internally
// reports the failure by returning an Action that returns an error.
type Action[S any] func(S) error

// Waker is the single wake primitive handed to tasks while they are polled.
type Waker interface {
	Wake()
}

// WakerFunc adapts a plain function to Waker.
type WakerFunc func()

// Wake calls f.
func (f WakerFunc) Wake() { f() }

// RepaintWaker wakes the UI loop by requesting a repaint. There is no other
// wake mechanism: every pending task is re-polled on the next Tick.
func RepaintWaker(r repaint.Requester) Waker {
	return WakerFunc(r.RequestRepaint)
}

// Task is a suspendable computation. Poll returns ready=false while the task
// is still waiting; it must then make sure w is woken when it can progress.
// Once Poll reports ready it is never called again. A nil action is "None".
type Task[S any] interface {
	Poll(w Waker) (action Action[S], ready bool)
}

// TaskFunc adapts a function to Task.
type TaskFunc[S any] func(w Waker) (Action[S], bool)

// Poll calls f.
func (f TaskFunc[S]) Poll(w Waker) (Action[S], bool) { return f(w) }

// Releaser is implemented by tasks that own resources which must be freed if
// the task is dropped before it completes.
type Releaser interface {
	Release()
}

// =============================================================================
// EXECUTOR
// =============================================================================

// Executor is a single-threaded cooperative scheduler. Spawn may be called
// from any goroutine; Tick is called by the UI goroutine only.
//
// The internal lock guards the pending set and the queue. It is never held
// while a task is polled or while an action runs, so tasks and actions may
// spawn further tasks.
type Executor[S any] struct {
	mu      sync.Mutex
	pending []Task[S]
	queued  []Action[S]
	closed  bool

	repaint repaint.Requester
	waker   Waker
}

// New creates an executor that wakes the UI through r.
func New[S any](r repaint.Requester) *Executor[S] {
	return &Executor[S]{
		repaint: r,
		waker:   RepaintWaker(r),
	}
}

// Spawn registers a task.
//
// With deferToNextCycle false the task is polled once right away; if it
// completes, its action is queued for the caller and the task never enters
// the pending set. Otherwise, or when deferToNextCycle is true, the task is
// added to the pending set and a repaint is requested.
func (e *Executor[S]) Spawn(task Task[S], deferToNextCycle bool) {
	if task == nil {
		return
	}

	if !deferToNextCycle {
		if e.isClosed() {
			release(task)
			return
		}
		if action, ready := task.Poll(e.waker); ready {
			if action != nil {
				e.mu.Lock()
				e.queued = append(e.queued, action)
				e.mu.Unlock()
			}
			return
		}
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		release(task)
		return
	}
	e.pending = append(e.pending, task)
	e.mu.Unlock()

	e.repaint.RequestRepaint()
}

// Tick polls every currently pending task exactly once and returns the
// actions that are ready, including those queued by synchronous spawns.
// The caller applies them; Tick never runs them itself.
func (e *Executor[S]) Tick() []Action[S] {
	e.mu.Lock()
	tasks := e.pending
	e.pending = nil
	actions := e.queued
	e.queued = nil
	e.mu.Unlock()

	if len(tasks) == 0 {
		return actions
	}

	// Completed tasks are swapped out, so the survivors lose their order.
	i := 0
	for i < len(tasks) {
		action, ready := tasks[i].Poll(e.waker)
		if !ready {
			i++
			continue
		}
		if action != nil {
			actions = append(actions, action)
		}
		last := len(tasks) - 1
		tasks[i] = tasks[last]
		tasks[last] = nil
		tasks = tasks[:last]
	}

	if len(tasks) > 0 {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			for _, t := range tasks {
				release(t)
			}
			return actions
		}
		e.pending = append(e.pending, tasks...)
		e.mu.Unlock()
	}

	return actions
}

// Pending returns the number of tasks waiting to complete.
func (e *Executor[S]) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Queued returns the number of actions waiting to be returned by Tick.
func (e *Executor[S]) Queued() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queued)
}

// Close drops all pending tasks and queued actions. Tasks that implement
// Releaser are released. Later spawns are dropped the same way.
func (e *Executor[S]) Close() {
	e.mu.Lock()
	tasks := e.pending
	e.pending = nil
	e.queued = nil
	e.closed = true
	e.mu.Unlock()

	for _, t := range tasks {
		release(t)
	}
}

func (e *Executor[S]) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func release(task any) {
	if r, ok := task.(Releaser); ok {
		r.Release()
	}
}

// =============================================================================
// DRIVING
// =============================================================================

// Drive applies the driving discipline for one frame: tick, apply the
// returned actions to state, and repeat until a tick returns nothing.
// Action errors are passed to onErr and do not stop the remaining actions.
// It returns the number of actions applied.
func Drive[S any](e *Executor[S], state S, onErr func(error)) int {
	applied := 0
	for {
		actions := e.Tick()
		if len(actions) == 0 {
			return applied
		}
		for _, action := range actions {
			applied++
			if err := action(state); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}
