// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package executor

import "sync"

// Future is a one-shot value that another goroutine resolves. Polling it
// registers the poller's waker, which Resolve invokes.
type Future[T any] struct {
	mu       sync.Mutex
	done     bool
	value    T
	waker    Waker
	released bool
	onDrop   func()
}

// NewFuture returns an unresolved future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{}
}

// Resolved returns a future that is already complete.
func Resolved[T any](v T) *Future[T] {
	return &Future[T]{done: true, value: v}
}

// OnDrop registers fn to run if the future is released before it resolves.
func (f *Future[T]) OnDrop(fn func()) {
	f.mu.Lock()
	f.onDrop = fn
	f.mu.Unlock()
}

// Resolve completes the future. Only the first call has an effect; it
// reports whether this call was the one that completed it.
func (f *Future[T]) Resolve(v T) bool {
	f.mu.Lock()
	if f.done || f.released {
		f.mu.Unlock()
		return false
	}
	f.done = true
	f.value = v
	w := f.waker
	f.waker = nil
	f.mu.Unlock()

	// Wake outside the lock; the waker may re-enter Poll on another goroutine.
	if w != nil {
		w.Wake()
	}
	return true
}

// Poll returns the value once resolved, remembering w otherwise.
func (f *Future[T]) Poll(w Waker) (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return f.value, true
	}
	f.waker = w
	var zero T
	return zero, false
}

// Done reports whether the future has been resolved.
func (f *Future[T]) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Release marks the future as abandoned. Later Resolve calls are ignored.
func (f *Future[T]) Release() {
	f.mu.Lock()
	if f.done || f.released {
		f.mu.Unlock()
		return
	}
	f.released = true
	f.waker = nil
	fn := f.onDrop
	f.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// =============================================================================
// TASK CONSTRUCTORS
// =============================================================================

// Ready returns a task that completes on its first poll with action.
func Ready[S any](action Action[S]) Task[S] {
	return TaskFunc[S](func(Waker) (Action[S], bool) { return action, true })
}

// awaitTask waits on a future and maps its value to an action.
type awaitTask[T, S any] struct {
	future *Future[T]
	then   func(T) Action[S]
}

func (t *awaitTask[T, S]) Poll(w Waker) (Action[S], bool) {
	v, ok := t.future.Poll(w)
	if !ok {
		return nil, false
	}
	if t.then == nil {
		return nil, true
	}
	return t.then(v), true
}

// Release drops the awaited future.
func (t *awaitTask[T, S]) Release() { t.future.Release() }

// Await returns a task that completes when f resolves, yielding then(value).
// then may return nil when there is nothing to apply.
func Await[T, S any](f *Future[T], then func(T) Action[S]) Task[S] {
	return &awaitTask[T, S]{future: f, then: then}
}

// =============================================================================
// DEFERRER
// =============================================================================

// Deferrer schedules work on the UI goroutine at the start of the next cycle.
// Graph callbacks use it for transitions that are unsafe to perform inside
// message dispatch.
type Deferrer interface {
	Defer(work func() error)
}

// DeferFunc adapts a function to Deferrer.
type DeferFunc func(work func() error)

// Defer calls f.
func (f DeferFunc) Defer(work func() error) { f(work) }

// Deferrer returns a Deferrer that spawns work as a deferred task. The work
// runs while the task is polled; an error becomes an action that returns it.
func (e *Executor[S]) Deferrer() Deferrer {
	return DeferFunc(func(work func() error) {
		e.Spawn(deferredTask[S](work), true)
	})
}

func deferredTask[S any](work func() error) Task[S] {
	return TaskFunc[S](func(Waker) (Action[S], bool) {
		if err := work(); err != nil {
			return func(S) error { return err }, true
		}
		return nil, true
	})
}
