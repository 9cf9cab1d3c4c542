// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ntsc-tui/internal/app"
	"github.com/jeranaias/ntsc-tui/internal/executor"
	"github.com/jeranaias/ntsc-tui/internal/ui/styles"
)

// =============================================================================
// FILE PICKER
// =============================================================================

// Picker shows file dialogs inside the editor. PickFile opens the overlay
// and returns at once; the future resolves when the user chooses a file or
// cancels. Open dialogs browse with a bubbles file picker, save dialogs
// edit a path in a text input.
//
// All methods run on the bubbletea goroutine.
type Picker struct {
	req    app.FileRequest
	future *executor.Future[string]

	files   filepicker.Model
	name    textinput.Model
	initCmd tea.Cmd
}

// NewPicker returns a closed picker.
func NewPicker() *Picker {
	return &Picker{}
}

// PickFile opens a dialog for req. A dialog that is still open is cancelled.
func (p *Picker) PickFile(req app.FileRequest) *executor.Future[string] {
	p.cancel()

	f := executor.NewFuture[string]()
	// The task waiting on the dialog may be dropped when the editor quits.
	f.OnDrop(func() { p.closeIf(f) })
	p.req = req
	p.future = f

	dir := req.Dir
	if dir == "" {
		dir, _ = os.Getwd()
	}

	if req.Save {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.SetValue(filepath.Join(dir, req.Name))
		ti.CursorEnd()
		ti.Focus()
		p.name = ti
		p.initCmd = textinput.Blink
		return f
	}

	fp := filepicker.New()
	fp.CurrentDirectory = dir
	fp.AutoHeight = false
	fp.Height = 12
	fp.AllowedTypes = nil
	for _, ext := range req.Extensions {
		fp.AllowedTypes = append(fp.AllowedTypes, "."+strings.TrimPrefix(ext, "."))
	}
	p.files = fp
	p.initCmd = fp.Init()
	return f
}

// Open reports whether a dialog is showing.
func (p *Picker) Open() bool { return p.future != nil }

// Request returns the request of the open dialog.
func (p *Picker) Request() app.FileRequest { return p.req }

// Cmd returns the command that starts a newly opened dialog, once.
func (p *Picker) Cmd() tea.Cmd {
	cmd := p.initCmd
	p.initCmd = nil
	return cmd
}

// Update handles msg while a dialog is open. It reports whether the
// message was consumed; key presses always are.
func (p *Picker) Update(msg tea.Msg) (bool, tea.Cmd) {
	if !p.Open() {
		return false, nil
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc", "ctrl+c":
			p.cancel()
			return true, nil
		case "enter":
			if p.req.Save {
				p.resolve(strings.TrimSpace(p.name.Value()))
				return true, nil
			}
		}
	}

	if p.req.Save {
		var cmd tea.Cmd
		p.name, cmd = p.name.Update(msg)
		_, isKey := msg.(tea.KeyMsg)
		return isKey, cmd
	}

	var cmd tea.Cmd
	p.files, cmd = p.files.Update(msg)
	if ok, path := p.files.DidSelectFile(msg); ok {
		p.resolve(path)
	}
	_, isKey := msg.(tea.KeyMsg)
	return isKey, cmd
}

// View renders the open dialog.
func (p *Picker) View(theme *styles.Theme, width int) string {
	if !p.Open() {
		return ""
	}
	title := p.req.Title
	var body, hint string
	if p.req.Save {
		p.name.Width = max(width-12, 20)
		body = p.name.View()
		hint = "enter save  esc cancel"
	} else {
		body = p.files.CurrentDirectory + "\n\n" + p.files.View()
		hint = "enter choose  ← up a folder  esc cancel"
	}
	return theme.Dialog.Width(max(width-4, 30)).Render(
		theme.DialogTitle.Render(title) + "\n" + body + "\n\n" + theme.ShortcutDesc.Render(hint))
}

func (p *Picker) resolve(path string) {
	f := p.future
	p.future = nil
	if f != nil {
		f.Resolve(path)
	}
}

func (p *Picker) cancel() { p.resolve("") }

func (p *Picker) closeIf(f *executor.Future[string]) {
	if p.future == f {
		p.future = nil
	}
}
