// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable view pieces for the ntsc-tui editor.

# Toasts (toast.go)

ToastManager keeps short-lived notifications such as "Settings copied" or
"Render complete". They expire on ToastTickMsg and never block input.
Errors from the editor's error slot are shown in a separate box that stays
until dismissed.

# Render Jobs (jobs.go)

RenderJobRow draws one export as its output path above a bubbles progress
bar and a status such as " 42% 1m10s left":

	row := components.RenderJobRow(theme, view, bar, width, selected)

# Error Hints (hints.go)

HintFor matches error text against known media-tool failures and returns
suggestions, such as installing ffmpeg or picking another output folder.
The editor's error box and the CLI both print them.
*/
package components
