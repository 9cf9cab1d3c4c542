// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/atotto/clipboard"

	"github.com/jeranaias/ntsc-tui/internal/executor"
)

// FileRequest describes a file dialog.
type FileRequest struct {
	Title string
	// Dir is where the dialog starts. Empty uses the working directory.
	Dir string
	// Name is the suggested file name for save dialogs.
	Name string
	// Extensions limits open dialogs to these extensions, without dots.
	Extensions []string
	Save       bool
}

// Dialogs shows file dialogs. Each call returns at once; the future resolves
// with the chosen path, or "" when the dialog is dismissed.
type Dialogs interface {
	PickFile(req FileRequest) *executor.Future[string]
}

// NoDialogs dismisses every dialog. It is used when there is no UI.
type NoDialogs struct{}

// PickFile returns a resolved, cancelled result.
func (NoDialogs) PickFile(FileRequest) *executor.Future[string] {
	return executor.Resolved("")
}

// Clipboard is the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// SystemClipboard uses the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) ReadAll() (string, error) { return clipboard.ReadAll() }

func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// VideoExtensions are offered by the open dialog.
var VideoExtensions = []string{
	"mp4", "mkv", "mov", "avi", "webm", "m4v", "mpg", "mpeg", "ts", "wmv", "flv",
	"png", "jpg", "jpeg", "bmp", "gif", "webp", "tif", "tiff",
}
