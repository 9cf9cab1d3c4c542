// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the editor.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// LAYOUT
	// ==========================================================================

	App         lipgloss.Style
	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderFile  lipgloss.Style

	// ==========================================================================
	// PANELS
	// ==========================================================================

	Panel        lipgloss.Style
	PanelFocused lipgloss.Style
	PanelTitle   lipgloss.Style
	Letterbox    lipgloss.Style
	Placeholder  lipgloss.Style

	// ==========================================================================
	// TRANSPORT
	// ==========================================================================

	Playing  lipgloss.Style
	Paused   lipgloss.Style
	Timecode lipgloss.Style

	// ==========================================================================
	// RENDER JOBS
	// ==========================================================================

	JobRow      lipgloss.Style
	JobSelected lipgloss.Style
	JobPath     lipgloss.Style
	JobMeta     lipgloss.Style

	// ==========================================================================
	// STATUS BAR
	// ==========================================================================

	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// ERRORS
	// ==========================================================================

	ErrorBox     lipgloss.Style
	ErrorTitle   lipgloss.Style
	ErrorMessage lipgloss.Style

	// Dialog is the border of the file picker and about overlays.
	Dialog      lipgloss.Style
	DialogTitle lipgloss.Style

	// ==========================================================================
	// ACCESSIBILITY: Status indicator styles
	// ==========================================================================

	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	InfoStyle    lipgloss.Style
}

// NewTheme creates a theme for mode, one of ModeAuto, ModeDark or
// ModeLight. Forcing a mode overrides lipgloss's background detection so
// adaptive colors follow it.
func NewTheme(mode string) *Theme {
	colorProfile := termenv.ColorProfile()
	isDark := termenv.HasDarkBackground()
	switch mode {
	case ModeDark:
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case ModeLight:
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	}

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()

	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderBrand = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.HeaderFile = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Panels
	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.PanelFocused = t.Panel.
		BorderForeground(Purple)

	t.PanelTitle = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.Letterbox = lipgloss.NewStyle().
		Foreground(Overlay)

	t.Placeholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Transport
	t.Playing = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.Paused = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.Timecode = lipgloss.NewStyle().
		Foreground(TextSecondary)

	// Render jobs
	t.JobRow = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(0, 1)

	t.JobSelected = lipgloss.NewStyle().
		Background(Purple).
		Foreground(TextInverse).
		Bold(true).
		Padding(0, 1)

	t.JobPath = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.JobMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Errors
	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)

	t.ErrorTitle = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.ErrorMessage = lipgloss.NewStyle().
		Foreground(TextPrimary)

	// Dialogs
	t.Dialog = lipgloss.NewStyle().
		Background(Surface).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)

	t.DialogTitle = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true).
		MarginBottom(1)

	// Accessibility
	t.SuccessStyle = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.ErrorStyle = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.WarningStyle = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.InfoStyle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, settings panel hidden
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns, settings beside the preview
)
