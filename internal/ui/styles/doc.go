// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the ntsc-tui editor.

# Color System (colors.go)

All colors are Lip Gloss AdaptiveColor values with a light and a dark
variant:

	Purple, Cyan       - Accents, focus and key hints
	Emerald            - Playing and completed renders
	Amber              - Paused and waiting states
	Rose, RoseDeep     - Errors
	Surface, Overlay   - Backgrounds and borders
	TextPrimary ...    - Text hierarchy

StatusIndicators pair every state with an ASCII shape so nothing depends on
color alone.

# Theme System (theme.go)

	theme := styles.NewTheme(cfg.UI.Theme)
	theme.SetSize(msg.Width, msg.Height)
	if theme.GetLayoutMode() == styles.LayoutNarrow {
		// hide the settings panel
	}
*/
package styles
