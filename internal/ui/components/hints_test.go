// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"errors"
	"testing"
)

func TestHintMatcher_Match(t *testing.T) {
	tests := []struct {
		msg   string
		title string
	}{
		{`Error loading video: exec: "ffprobe": executable file not found in $PATH`, "ffprobe Not Found"},
		{`Error rendering video: exec: "ffmpeg": executable file not found in $PATH`, "FFmpeg Not Found"},
		{"Unknown encoder 'libx264'", "Encoder Missing"},
		{"clip.mp4: Invalid data found when processing input", "Unreadable Source"},
		{"write /out/a.mkv: no space left on device", "Disk Full"},
		{"open /root/out.mp4: permission denied", "Permission Denied"},
		{"Error parsing JSON: invalid character 'x' looking for beginning of value", "Bad Preset"},
	}
	m := NewHintMatcher()
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			h, ok := m.Match(tt.msg)
			if !ok {
				t.Fatalf("no hint for %q", tt.msg)
			}
			if h.Title != tt.title {
				t.Errorf("Match(%q).Title = %q, want %q", tt.msg, h.Title, tt.title)
			}
			if len(h.Suggestions) == 0 {
				t.Error("hints need suggestions")
			}
		})
	}
}

func TestHintMatcher_FirstMatchWins(t *testing.T) {
	m := &HintMatcher{}
	m.Add(ErrorHint{Keywords: []string{"disk"}, Title: "specific"})
	m.Add(ErrorHint{Keywords: []string{"disk", "full"}, Title: "general"})
	if h, _ := m.Match("Disk full"); h.Title != "specific" {
		t.Errorf("Title = %q, want the first registered hint", h.Title)
	}
}

func TestHintFor_NoMatch(t *testing.T) {
	if _, ok := HintFor(errors.New("something odd")); ok {
		t.Error("unrelated errors have no hint")
	}
	if _, ok := HintFor(nil); ok {
		t.Error("nil errors have no hint")
	}
}
