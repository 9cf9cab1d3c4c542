// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package editor is the bubbletea front end of ntsc-tui: a live preview,
// transport and effect controls, and the list of render jobs.
package editor

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ntsc-tui/internal/app"
	"github.com/jeranaias/ntsc-tui/internal/render"
	"github.com/jeranaias/ntsc-tui/internal/ui/components"
	"github.com/jeranaias/ntsc-tui/internal/ui/styles"
)

// jobTickInterval refreshes render progress, which changes without any
// graph message.
const jobTickInterval = 250 * time.Millisecond

// Acker is told when a repaint message has been received. repaint.Program
// implements it.
type Acker interface {
	Ack()
}

// Options configures the editor.
type Options struct {
	App    *app.App
	Picker *Picker
	Acker  Acker
	Theme  *styles.Theme

	Version    string
	ConfigPath string
	LogPath    string
}

// Model is the bubbletea model of the editor.
type Model struct {
	app    *app.App
	picker *Picker
	acker  Acker
	theme  *styles.Theme

	version    string
	configPath string
	logPath    string

	width  int
	height int

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	bar     progress.Model
	toasts  *components.ToastManager

	frames   *frameRenderer
	settings *settingsPanel

	selectedJob  int
	jobStates    map[string]render.StateKind
	showSettings bool
	showHelp     bool
	about        string
	quitting     bool
}

// New creates the editor model.
func New(opts Options) *Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ModeAuto)
	}
	picker := opts.Picker
	if picker == nil {
		picker = NewPicker()
	}

	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = lipgloss.NewStyle().Foreground(styles.Purple)

	return &Model{
		app:          opts.App,
		picker:       picker,
		acker:        opts.Acker,
		theme:        theme,
		version:      opts.Version,
		configPath:   opts.ConfigPath,
		logPath:      opts.LogPath,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		spinner:      s,
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		toasts:       components.NewToastManager(),
		frames:       newFrameRenderer(theme.ColorProfile),
		settings:     &settingsPanel{theme: theme},
		jobStates:    make(map[string]render.StateKind),
		showSettings: true,
	}
}

// Init starts the periodic ticks.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, components.ToastTickCmd(), jobTick())
}

type jobTickMsg struct{}

func jobTick() tea.Cmd {
	return tea.Tick(jobTickInterval, func(time.Time) tea.Msg { return jobTickMsg{} })
}

// App returns the editor's App.
func (m *Model) App() *app.App { return m.app }
