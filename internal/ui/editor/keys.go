// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the editor's keyboard bindings.
type KeyMap struct {
	Open        key.Binding
	PlayPause   key.Binding
	SeekBack    key.Binding
	SeekForward key.Binding
	Render      key.Binding
	SaveImage   key.Binding
	LoadPreset  key.Binding
	SavePreset  key.Binding
	Copy        key.Binding
	Paste       key.Binding
	NoiseDown   key.Binding
	NoiseUp     key.Binding
	Undo        key.Binding
	Redo        key.Binding
	NextJob     key.Binding
	PrevJob     key.Binding
	PauseJob    key.Binding
	DismissJob  key.Binding
	Dismiss     key.Binding
	Settings    key.Binding
	About       key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open video"),
		),
		PlayPause: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/pause"),
		),
		SeekBack: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "seek back"),
		),
		SeekForward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "seek forward"),
		),
		Render: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "render"),
		),
		SaveImage: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "save frame"),
		),
		LoadPreset: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "load preset"),
		),
		SavePreset: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "save preset"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy settings"),
		),
		Paste: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "paste settings"),
		),
		NoiseDown: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "less noise"),
		),
		NoiseUp: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "more noise"),
		),
		Undo: key.NewBinding(
			key.WithKeys("u", "ctrl+z"),
			key.WithHelp("u", "undo"),
		),
		Redo: key.NewBinding(
			key.WithKeys("U", "ctrl+y"),
			key.WithHelp("U", "redo"),
		),
		NextJob: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next job"),
		),
		PrevJob: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous job"),
		),
		PauseJob: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "pause job"),
		),
		DismissJob: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "remove job"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss error"),
		),
		Settings: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "show settings"),
		),
		About: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "about"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.PlayPause, k.Render, k.Help, k.Quit}
}

// FullHelp returns the bindings grouped for the help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Playback
		{k.Open, k.PlayPause, k.SeekBack, k.SeekForward},
		// Effect
		{k.NoiseDown, k.NoiseUp, k.Undo, k.Redo, k.Settings},
		// Presets
		{k.LoadPreset, k.SavePreset, k.Copy, k.Paste},
		// Output
		{k.Render, k.SaveImage, k.NextJob, k.PrevJob, k.PauseJob, k.DismissJob},
		{k.Dismiss, k.About, k.Help, k.Quit},
	}
}
