// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across ntsc-tui.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// Terminal Text:
//   - TruncateWidth, TruncateLeft: Width-aware truncation with an ellipsis
//   - PadRight, StringWidth: Column arithmetic for wide characters
//
// # Usage
//
//	// Keep the file name visible in a narrow job row
//	row := util.TruncateLeft(job.Settings.OutputPath, 30)
//
//	// Write settings without ever leaving a half-written file
//	err := util.AtomicWriteFile(path, data, 0644)
package util
