// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/ntsc-tui/internal/effect"
	"github.com/jeranaias/ntsc-tui/internal/preset"
	"github.com/jeranaias/ntsc-tui/internal/ui/styles"
)

// =============================================================================
// SETTINGS PANEL
// =============================================================================

// settingsPanel shows the effect settings as highlighted preset JSON. The
// highlighted text is rebuilt only when the settings change.
type settingsPanel struct {
	theme    *styles.Theme
	settings effect.Settings
	text     string
	valid    bool
}

func (p *settingsPanel) View(s effect.Settings) string {
	if p.valid && p.settings.Equal(s) {
		return p.text
	}
	data, err := preset.Marshal(s)
	if err != nil {
		return styles.RenderError(err.Error())
	}
	p.settings = s.Clone()
	p.text = highlightJSON(string(data), p.theme)
	p.valid = true
	return p.text
}

// highlightJSON applies syntax highlighting with chroma, falling back to
// plain text.
func highlightJSON(code string, theme *styles.Theme) string {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	styleName := "monokai"
	if !theme.IsDark {
		styleName = "github"
	}
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatterName := "terminal256"
	if theme.HasTrueColor {
		formatterName = "terminal16m"
	}
	formatter := formatters.Get(formatterName)
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// =============================================================================
// ABOUT
// =============================================================================

const aboutTemplate = `# ntsc-tui %s

Analog TV and VHS artifacts for video files, previewed live in the terminal.

## Workflow

1. Open a video with **o**. The preview pauses on the first frame.
2. Shape the look with **[** and **]**, or load a preset with **p**.
   Preset files are watched and reapplied when they change on disk.
3. Render with **r** or save the current frame with **s**.
   Renders run in the background; **t** pauses and resumes one.

Settings are undoable with **u** and **U**.

## Files

| What     | Where |
|----------|-------|
| Config   | %s    |
| Log      | %s    |

Rendering needs ffmpeg and ffprobe on the PATH or set in the config.
`

// renderAbout renders the about page with glamour, falling back to the
// markdown source.
func renderAbout(theme *styles.Theme, version, configPath, logPath string, width int) string {
	md := fmt.Sprintf(aboutTemplate, version, configPath, logPath)

	// Auto style would query the terminal while bubbletea owns it.
	styleName := "dark"
	if !theme.IsDark {
		styleName = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(styleName),
		glamour.WithWordWrap(max(width-8, 40)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
