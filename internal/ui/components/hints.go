// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"runtime"
	"strings"
	"sync"
)

// =============================================================================
// ERROR HINTS
// =============================================================================

// ErrorHint is a pattern over error text with suggestions for the user.
type ErrorHint struct {
	// Keywords to match in the error message (case-insensitive, any match triggers)
	Keywords []string

	// Title names the problem in a few words
	Title string

	// Suggestions to help resolve the error
	Suggestions []string
}

// HintMatcher finds the hint for an error message. The first matching hint
// wins, so hints are registered from most to least specific.
type HintMatcher struct {
	mu    sync.RWMutex
	hints []ErrorHint
}

var (
	defaultHints     *HintMatcher
	defaultHintsOnce sync.Once
)

// DefaultHints returns the shared matcher with the built-in hints.
func DefaultHints() *HintMatcher {
	defaultHintsOnce.Do(func() {
		defaultHints = NewHintMatcher()
	})
	return defaultHints
}

// NewHintMatcher returns a matcher with the built-in hints.
func NewHintMatcher() *HintMatcher {
	m := &HintMatcher{}
	m.registerDefaults()
	return m
}

func (m *HintMatcher) registerDefaults() {
	m.Add(ErrorHint{
		Keywords:    []string{"ffprobe\": executable file not found", "ffprobe: not found", "exec: \"ffprobe\""},
		Title:       "ffprobe Not Found",
		Suggestions: installSuggestions("ffprobe"),
	})
	m.Add(ErrorHint{
		Keywords:    []string{"ffmpeg\": executable file not found", "ffmpeg: not found", "exec: \"ffmpeg\""},
		Title:       "FFmpeg Not Found",
		Suggestions: installSuggestions("ffmpeg"),
	})
	m.Add(ErrorHint{
		Keywords: []string{"unknown encoder", "encoder not found", "libx264"},
		Title:    "Encoder Missing",
		Suggestions: []string{
			"This ffmpeg build lacks the encoder; install a full build",
			"Or export with --codec ffv1",
		},
	})
	m.Add(ErrorHint{
		Keywords: []string{"invalid data found", "moov atom not found", "no video stream", "could not find codec parameters"},
		Title:    "Unreadable Source",
		Suggestions: []string{
			"Check that the file plays in another player",
			"The file may still be downloading or be truncated",
		},
	})
	m.Add(ErrorHint{
		Keywords: []string{"no space left on device", "disk full", "disk quota exceeded"},
		Title:    "Disk Full",
		Suggestions: []string{
			"Free some space or export to another drive",
			"FFV1 files are large; H.264 needs far less space",
		},
	})
	m.Add(ErrorHint{
		Keywords:    []string{"permission denied", "access is denied", "operation not permitted"},
		Title:       "Permission Denied",
		Suggestions: permissionSuggestions(),
	})
	m.Add(ErrorHint{
		Keywords: []string{"interleaved fields", "cannot be interlaced"},
		Title:    "Interlacing Needs Both Fields",
		Suggestions: []string{
			"Set the effect's field mode to interleaved, or export progressive",
		},
	})
	m.Add(ErrorHint{
		Keywords: []string{"error parsing json", "error reading json", "invalid character", "unexpected end of json"},
		Title:    "Bad Preset",
		Suggestions: []string{
			"Presets are JSON files saved with P",
			"Copy settings with c to see the expected layout",
		},
	})
	m.Add(ErrorHint{
		Keywords: []string{"clipboard", "xclip", "xsel", "wl-copy"},
		Title:    "Clipboard Unavailable",
		Suggestions: clipboardSuggestions(),
	})
}

// Add registers a hint after the existing ones.
func (m *HintMatcher) Add(h ErrorHint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hints = append(m.hints, h)
}

// Match returns the hint for msg.
func (m *HintMatcher) Match(msg string) (ErrorHint, bool) {
	lower := strings.ToLower(msg)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.hints {
		for _, kw := range h.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return h, true
			}
		}
	}
	return ErrorHint{}, false
}

// HintFor returns the default hint for err.
func HintFor(err error) (ErrorHint, bool) {
	if err == nil {
		return ErrorHint{}, false
	}
	return DefaultHints().Match(err.Error())
}

// =============================================================================
// PLATFORM-SPECIFIC HELPERS
// =============================================================================

func installSuggestions(tool string) []string {
	env := "NTSC_TUI_" + strings.ToUpper(tool)
	switch runtime.GOOS {
	case "windows":
		return []string{
			"Install FFmpeg: winget install ffmpeg",
			"Or set " + env + " to the full path of " + tool + ".exe",
		}
	case "darwin":
		return []string{
			"Install FFmpeg: brew install ffmpeg",
			"Or set " + env + " to the full path of " + tool,
		}
	default:
		return []string{
			"Install FFmpeg with your package manager, e.g. apt install ffmpeg",
			"Or set " + env + " to the full path of " + tool,
		}
	}
}

func permissionSuggestions() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			"Check file permissions in Properties > Security",
			"Choose an output folder you own",
		}
	default:
		return []string{
			"Check file permissions: ls -l <file>",
			"Choose an output folder you own",
		}
	}
}

func clipboardSuggestions() []string {
	if runtime.GOOS == "linux" {
		return []string{"Install xclip, xsel or wl-clipboard"}
	}
	return []string{"Another program may be holding the clipboard; try again"}
}
