// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package graph

import (
	"strconv"
	"strings"
	"time"
)

// progressUpdate is one parsed line of `-progress` output.
type progressUpdate struct {
	// Position is set when the line reports the output time.
	Position    time.Duration
	HasPosition bool
	// End is set on "progress=end".
	End bool
}

// parseProgressLine parses a key=value line. ok is false for anything that
// is not progress output, such as ffmpeg's own error log lines.
func parseProgressLine(line string) (upd progressUpdate, ok bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found || key == "" || strings.ContainsAny(key, " \t:") {
		return progressUpdate{}, false
	}

	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys are in microseconds.
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || us < 0 {
			return progressUpdate{}, true
		}
		upd.Position = time.Duration(us) * time.Microsecond
		upd.HasPosition = true
	case "progress":
		upd.End = value == "end"
	}
	return upd, true
}

// tail keeps the last few non-progress lines for error messages.
type tail struct {
	lines []string
	max   int
}

func newTail(max int) *tail {
	return &tail{max: max}
}

func (t *tail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if len(t.lines) == t.max {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:t.max-1]
	}
	t.lines = append(t.lines, line)
}

func (t *tail) String() string {
	return strings.Join(t.lines, "; ")
}
