// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/jeranaias/ntsc-tui/internal/render"
	"github.com/jeranaias/ntsc-tui/internal/ui/styles"
)

func TestJobStatus(t *testing.T) {
	tests := []struct {
		name string
		view JobView
		want string
	}{
		{"waiting", JobView{State: render.StateWaiting}, "waiting"},
		{"rendering", JobView{State: render.StateRendering, Progress: 0.5}, " 50%"},
		{"rendering with eta", JobView{State: render.StateRendering, Progress: 0.25, Remaining: 75, HasRemaining: true}, " 25% 1m15s left"},
		{"paused", JobView{State: render.StatePaused}, "paused"},
		{"complete", JobView{State: render.StateComplete, Elapsed: 3*time.Minute + 2*time.Second}, "done in 3m02s"},
		{"error", JobView{State: render.StateError, Err: errors.New("disk full")}, "failed: disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JobStatus(tt.view); got != tt.want {
				t.Errorf("JobStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{1500 * time.Millisecond, "2s"},
		{61 * time.Second, "1m01s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h02m03s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestRenderJobRow_KeepsFileName(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	v := JobView{
		Output:   "/home/someone/very/long/path/to/exports/holiday_ntsc.mp4",
		State:    render.StateRendering,
		Progress: 0.4,
	}
	out := RenderJobRow(theme, v, progress.New(progress.WithoutPercentage()), 40, false)
	if !strings.Contains(out, "holiday_ntsc.mp4") {
		t.Errorf("row should keep the end of the path:\n%s", out)
	}
	if !strings.Contains(out, "40%") {
		t.Errorf("row should show the percentage:\n%s", out)
	}
}
