// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ntsc-tui/internal/render"
	"github.com/jeranaias/ntsc-tui/internal/ui/styles"
	"github.com/jeranaias/ntsc-tui/internal/util"
)

// =============================================================================
// RENDER JOB ROW
// =============================================================================

// JobView is what a job row shows. It is built by the editor each frame.
type JobView struct {
	Output   string
	State    render.StateKind
	Progress float64

	// Remaining is whole seconds left, valid when HasRemaining.
	Remaining    float64
	HasRemaining bool

	Elapsed time.Duration
	Err     error
}

// RenderJobRow renders a job as two lines: the output path and a progress
// bar with the job's status.
func RenderJobRow(theme *styles.Theme, v JobView, bar progress.Model, width int, selected bool) string {
	inner := max(width-2, 10)

	indicator := jobIndicator(v.State)
	path := util.TruncateLeft(v.Output, inner-lipgloss.Width(indicator)-1)
	top := indicator + " " + theme.JobPath.Render(path)

	status := JobStatus(v)
	bar.Width = max(inner-util.StringWidth(status)-1, 5)
	bottom := bar.ViewAs(math.Max(0, math.Min(1, v.Progress))) + " " + theme.JobMeta.Render(status)

	style := theme.JobRow
	if selected {
		style = theme.JobSelected
	}
	return style.Width(width).Render(top + "\n" + bottom)
}

// JobStatus returns the short status text of a job row.
func JobStatus(v JobView) string {
	switch v.State {
	case render.StateWaiting:
		return "waiting"
	case render.StateRendering:
		pct := fmt.Sprintf("%3.0f%%", v.Progress*100)
		if v.HasRemaining {
			return pct + " " + FormatDuration(time.Duration(v.Remaining)*time.Second) + " left"
		}
		return pct
	case render.StatePaused:
		return "paused"
	case render.StateComplete:
		return "done in " + FormatDuration(v.Elapsed)
	case render.StateError:
		if v.Err != nil {
			return "failed: " + v.Err.Error()
		}
		return "failed"
	}
	return v.State.String()
}

func jobIndicator(k render.StateKind) string {
	switch k {
	case render.StateComplete:
		return styles.StatusIndicators.Success
	case render.StateError:
		return styles.StatusIndicators.Error
	case render.StatePaused:
		return styles.StatusIndicators.Warning
	case render.StateRendering:
		return styles.StatusIndicators.Active
	}
	return styles.StatusIndicators.Pending
}

// FormatDuration renders d as "1h02m03s", "2m03s" or "3s".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
