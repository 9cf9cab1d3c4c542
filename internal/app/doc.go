// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app holds the editor's application state and the operations the
// UI invokes on it.
//
// App is owned by one goroutine, the UI loop. Everything that completes
// elsewhere (dialogs, graph builds, preset file changes) comes back as a task
// on the App's executor and mutates state through an action applied by
// Frame. Graph goroutines never touch App; they write the shared cells of
// their preview or render job and request a repaint.
//
// # Key Types
//
//   - App: loaded preview, effect settings, render jobs and the error slot
//   - Error / ErrorKind: errors shown to the user, tagged by operation
//   - Dialogs: asynchronous file dialogs returning futures
//   - Clipboard: the system clipboard, replaceable in tests
//
// # Usage
//
//	a := app.New(app.Options{Builder: builder, Repaint: rp, Dialogs: d, Config: cfg})
//	defer a.Close()
//
//	// on every repaint
//	a.Frame()
//	view := render(a)
package app
