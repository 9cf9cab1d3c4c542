// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/jeranaias/ntsc-tui/internal/pipeline"
	"github.com/jeranaias/ntsc-tui/internal/ui/components"
	"github.com/jeranaias/ntsc-tui/internal/ui/styles"
	"github.com/jeranaias/ntsc-tui/internal/util"
)

// View renders the editor.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	width := m.width
	if width == 0 {
		width = 80
	}

	parts := []string{m.viewHeader(width)}
	switch {
	case m.picker.Open():
		parts = append(parts, m.picker.View(m.theme, width))
	case m.about != "":
		parts = append(parts, m.theme.Dialog.Width(max(width-4, 30)).Render(m.about))
	default:
		parts = append(parts, m.viewMain(width))
		if jobs := m.viewJobs(width); jobs != "" {
			parts = append(parts, jobs)
		}
	}

	if err := m.app.LastError(); err != nil {
		parts = append(parts, m.viewError(err, width))
	}
	if toasts := m.toasts.Toasts(); len(toasts) > 0 {
		parts = append(parts, lipgloss.PlaceHorizontal(width, lipgloss.Right, components.RenderToastStack(toasts, width)))
	}
	parts = append(parts, m.viewStatusBar(width))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// HEADER
// =============================================================================

func (m *Model) viewHeader(width int) string {
	brand := m.theme.HeaderBrand.Render("ntsc-tui")
	file := ""
	if p := m.app.Preview(); p != nil {
		file = util.TruncateLeft(p.Source(), max(width-14, 10))
	}
	return m.theme.Header.Width(width).Render(brand + "  " + m.theme.HeaderFile.Render(file))
}

// =============================================================================
// PREVIEW AND SETTINGS
// =============================================================================

func (m *Model) viewMain(width int) string {
	preview := m.viewPreview()
	if !m.showSettings || m.theme.GetLayoutMode() == styles.LayoutNarrow {
		return preview
	}

	left := m.theme.Panel.Render(preview)
	room := width - lipgloss.Width(left) - 4
	if room < 24 {
		return left
	}
	lines := max(lipgloss.Height(preview), 12)
	settings := clipLines(m.settings.View(m.app.Effect()), lines, room)
	right := m.theme.Panel.Render(m.theme.PanelTitle.Render("Effect") + "\n" + settings)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m *Model) viewPreview() string {
	p := m.app.Preview()
	if p == nil {
		return m.theme.Placeholder.Render("Press o to open a video, ? for keys")
	}

	switch p.State().Status {
	case pipeline.StatusLoading:
		return m.spinner.View() + " Loading " + filepath.Base(p.Source())
	case pipeline.StatusError:
		return m.theme.ErrorStyle.Render("Preview failed")
	}

	picture := m.frames.Render(p.Frame())
	if picture == "" {
		picture = m.theme.Placeholder.Render("Waiting for the first frame")
	}
	return picture + "\n" + m.viewTransport(p)
}

func (m *Model) viewTransport(p *pipeline.Preview) string {
	state := m.theme.Paused.Render("|| paused")
	if p.Playing() {
		state = m.theme.Playing.Render("> playing")
	}

	pos, _ := p.Position()
	timecode := formatTimecode(pos)
	if dur, ok := p.Duration(); ok {
		timecode += " / " + formatTimecode(dur)
	}

	meta := p.Metadata()
	info := ""
	if meta.Known {
		info = fmt.Sprintf("%dx%d", meta.Info.Width, meta.Info.Height)
		if !meta.Info.Framerate.IsZero() {
			info += fmt.Sprintf(" %.2ffps", meta.Info.Framerate.FPS())
		}
		if meta.Info.IsStillImage {
			info += " still"
		}
	}

	fields := []string{state, m.theme.Timecode.Render(timecode), m.theme.JobMeta.Render(info),
		m.theme.JobMeta.Render(fmt.Sprintf("noise %.2f", m.app.Effect().NoiseLevel()))}
	if m.app.CanUndo() {
		fields = append(fields, m.theme.ShortcutDesc.Render("u undo"))
	}
	if m.app.CanRedo() {
		fields = append(fields, m.theme.ShortcutDesc.Render("U redo"))
	}
	return strings.Join(fields, "  ")
}

// =============================================================================
// JOBS
// =============================================================================

func (m *Model) viewJobs(width int) string {
	jobs := m.app.Jobs()
	if len(jobs) == 0 {
		return ""
	}
	now := m.app.Now()
	rows := make([]string, 0, len(jobs)+1)
	rows = append(rows, m.theme.PanelTitle.Render("Renders"))
	for i, job := range jobs {
		st := job.State()
		v := components.JobView{
			Output:   job.Settings.OutputPath,
			State:    st.Kind,
			Progress: job.Progress(),
			Elapsed:  job.Elapsed(),
			Err:      st.Err,
		}
		v.Remaining, v.HasRemaining = job.TimeRemaining(now)
		rows = append(rows, components.RenderJobRow(m.theme, v, m.bar, width-2, i == m.selectedJob))
	}
	return strings.Join(rows, "\n")
}

// =============================================================================
// ERRORS AND STATUS
// =============================================================================

func (m *Model) viewError(err error, width int) string {
	lines := []string{m.theme.ErrorTitle.Render(styles.StatusIndicators.Error + " " + err.Error())}
	if hint, ok := components.HintFor(err); ok {
		lines = append(lines, m.theme.ErrorMessage.Render(hint.Title+":"))
		for _, s := range hint.Suggestions {
			lines = append(lines, m.theme.ErrorMessage.Render("  • "+s))
		}
	}
	lines = append(lines, m.theme.ShortcutDesc.Render("esc to dismiss"))
	return m.theme.ErrorBox.Width(max(width-2, 20)).Render(strings.Join(lines, "\n"))
}

func (m *Model) viewStatusBar(width int) string {
	if m.showHelp {
		return m.help.FullHelpView(m.keys.FullHelp())
	}
	return m.theme.StatusBar.Width(width).Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

// =============================================================================
// HELPERS
// =============================================================================

// formatTimecode renders d as "mm:ss" or "h:mm:ss".
func formatTimecode(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d / time.Hour)
	mins := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}

// clipLines keeps at most n lines of text, each at most width columns.
func clipLines(text string, n, width int) string {
	lines := strings.Split(text, "\n")
	more := len(lines) > n
	if more {
		lines = lines[:max(n-1, 0)]
	}
	for i, l := range lines {
		if lipgloss.Width(l) > width {
			lines[i] = truncate.String(l, uint(width))
		}
	}
	if more {
		lines = append(lines, "...")
	}
	return strings.Join(lines, "\n")
}
