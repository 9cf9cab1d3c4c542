// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ntsc-tui/internal/render"
	"github.com/jeranaias/ntsc-tui/internal/repaint"
	"github.com/jeranaias/ntsc-tui/internal/ui/components"
)

// noiseStep is how much [ and ] change the composite noise.
const noiseStep = 0.05

// Update handles one message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// An open dialog gets every message first and owns the keyboard.
	if consumed, cmd := m.picker.Update(msg); consumed {
		m.frame()
		return m, tea.Batch(cmd, m.picker.Cmd())
	} else if cmd != nil {
		cmds = append(cmds, cmd)
	}

	switch msg := msg.(type) {
	case repaint.Msg:
		// Ack first so requests made during the frame send a new message.
		if m.acker != nil {
			m.acker.Ack()
		}
		m.frame()

	case jobTickMsg:
		m.frame()
		cmds = append(cmds, jobTick())

	case components.ToastTickMsg:
		m.toasts.Tick()
		cmds = append(cmds, components.ToastTickCmd())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.help.Width = msg.Width
		if m.about != "" {
			m.about = m.renderAbout()
		}

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))
		if !m.quitting {
			m.frame()
		}
	}

	cmds = append(cmds, m.picker.Cmd())
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	a := m.app

	if m.about != "" {
		m.about = ""
		if !key.Matches(msg, m.keys.Quit) {
			return nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
	case key.Matches(msg, m.keys.About):
		m.about = m.renderAbout()
	case key.Matches(msg, m.keys.Dismiss):
		a.DismissError()
	case key.Matches(msg, m.keys.Settings):
		m.showSettings = !m.showSettings

	case key.Matches(msg, m.keys.Open):
		a.OpenVideoDialog()
	case key.Matches(msg, m.keys.PlayPause):
		a.HandleError(a.TogglePlaying())
	case key.Matches(msg, m.keys.SeekBack):
		a.HandleError(a.SeekBy(-m.seekStep()))
	case key.Matches(msg, m.keys.SeekForward):
		a.HandleError(a.SeekBy(m.seekStep()))

	case key.Matches(msg, m.keys.NoiseDown):
		a.HandleError(a.AdjustNoise(-noiseStep))
	case key.Matches(msg, m.keys.NoiseUp):
		a.HandleError(a.AdjustNoise(noiseStep))
	case key.Matches(msg, m.keys.Undo):
		a.HandleError(a.Undo())
	case key.Matches(msg, m.keys.Redo):
		a.HandleError(a.Redo())

	case key.Matches(msg, m.keys.LoadPreset):
		a.LoadPresetDialog()
	case key.Matches(msg, m.keys.SavePreset):
		a.SavePresetDialog()
	case key.Matches(msg, m.keys.Copy):
		if m.report(a.CopySettings()) {
			m.toasts.Add(components.ToastKindSuccess, "Settings copied")
		}
	case key.Matches(msg, m.keys.Paste):
		if m.report(a.PasteSettings()) {
			m.toasts.Add(components.ToastKindSuccess, "Settings pasted")
		}

	case key.Matches(msg, m.keys.Render):
		a.RenderDialog()
	case key.Matches(msg, m.keys.SaveImage):
		a.SaveImageDialog()
	case key.Matches(msg, m.keys.NextJob):
		m.selectedJob++
		m.clampSelection()
	case key.Matches(msg, m.keys.PrevJob):
		m.selectedJob--
		m.clampSelection()
	case key.Matches(msg, m.keys.PauseJob):
		if job := m.selected(); job != nil {
			a.HandleError(a.ToggleJobPaused(job.ID))
		}
	case key.Matches(msg, m.keys.DismissJob):
		if job := m.selected(); job != nil {
			a.DismissJob(job.ID)
			delete(m.jobStates, job.ID)
			m.clampSelection()
		}
	}
	return nil
}

// report sends err to the error slot and reports whether there was none.
func (m *Model) report(err error) bool {
	m.app.HandleError(err)
	return err == nil
}

// frame runs the App frame and turns job completions into toasts.
func (m *Model) frame() {
	m.app.Frame()

	for _, job := range m.app.Jobs() {
		kind := job.State().Kind
		prev, seen := m.jobStates[job.ID]
		if seen && prev != kind && kind == render.StateComplete {
			m.toasts.Add(components.ToastKindSuccess, "Saved "+filepath.Base(job.Settings.OutputPath))
		}
		m.jobStates[job.ID] = kind
	}
	m.clampSelection()
}

func (m *Model) seekStep() time.Duration {
	return time.Duration(m.app.Config().UI.SeekStepSecs * float64(time.Second))
}

func (m *Model) selected() *render.Job {
	jobs := m.app.Jobs()
	if m.selectedJob < 0 || m.selectedJob >= len(jobs) {
		return nil
	}
	return jobs[m.selectedJob]
}

func (m *Model) clampSelection() {
	n := len(m.app.Jobs())
	m.selectedJob = max(0, min(m.selectedJob, n-1))
}

func (m *Model) renderAbout() string {
	return renderAbout(m.theme, m.version, m.configPath, m.logPath, m.width)
}
