// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"github.com/mattn/go-runewidth"
)

const ellipsis = "..."

// TruncateWidth truncates s to at most maxWidth terminal columns, ending in
// "..." when anything was cut. Wide characters count as two columns.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= len(ellipsis) {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, ellipsis)
}

// TruncateLeft keeps the end of s, which is the informative part of a file
// path, and marks the cut with a leading "...".
func TruncateLeft(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	keep := maxWidth - len(ellipsis)
	prefix := ellipsis
	if keep <= 0 {
		keep, prefix = maxWidth, ""
	}
	runes := []rune(s)
	width := 0
	start := len(runes)
	for start > 0 {
		w := runewidth.RuneWidth(runes[start-1])
		if width+w > keep {
			break
		}
		width += w
		start--
	}
	return prefix + string(runes[start:])
}

// PadRight pads s with spaces to width columns.
func PadRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// StringWidth returns the display width of a string.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}
