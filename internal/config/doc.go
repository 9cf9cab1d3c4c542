// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and persistence for ntsc-tui.
//
// The configuration is a single TOML file with defaults, environment
// variable overrides and validation. The editor loads it at startup and
// saves it on exit so the effect settings carry over between sessions.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - UIConfig: Preview size, frame rate and theme
//   - RenderConfig: Default export codec options
//   - FFmpegConfig: Paths of the ffmpeg and ffprobe binaries
//   - LogConfig: Log level and file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (NTSC_TUI_*)
//   - ~/.ntsc-tui/config.toml (or $NTSC_TUI_HOME/config.toml)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer config.Save(cfg)
package config
