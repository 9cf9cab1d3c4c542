// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package executor provides the cooperative task executor that lets
// asynchronous work resume into UI-owned state.
//
// A Task is polled by the UI goroutine. When it is not ready it returns
// (nil, false) and arranges for the Waker it was handed to be invoked once
// progress is possible; the waker requests a repaint, which makes the UI loop
// call Tick again. When it is ready it yields an optional Action, a one-shot
// function that mutates application state.
//
// # Key Types
//
//   - Executor: pending task set plus the queue of yielded actions
//   - Task / TaskFunc: a pollable computation
//   - Action: a state mutation, applied by the driver, never by the executor
//   - Future: a one-shot value completed from any goroutine
//   - Deferrer: schedules work for the start of the next UI cycle
//
// # Usage
//
//	exec := executor.New[*App](repainter)
//	exec.Spawn(executor.Await(dialogResult, func(path string) executor.Action[*App] {
//	    return func(a *App) error { return a.LoadVideo(path) }
//	}), false)
//
//	// once per frame
//	executor.Drive(exec, app, app.HandleError)
//
// Actions must be applied outside the executor. Drive keeps ticking until a
// tick yields nothing, because an applied action may spawn a task that
// completes synchronously and must be visible before the frame is drawn.
package executor
