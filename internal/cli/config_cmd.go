// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/jeranaias/ntsc-tui/internal/config"
)

// HandleConfig runs "config show" and "config path". path is the file cfg
// was loaded from, or would be saved to.
func HandleConfig(args Args, cfg *config.Config, path string, w io.Writer) error {
	switch args.Subcommand {
	case "", "show":
		fmt.Fprintln(w, RenderConditional(TitleStyle, "ntsc-tui configuration"))
		fmt.Fprintln(w, RenderField("File", path))
		if logPath, err := cfg.LogPath(); err == nil {
			fmt.Fprintln(w, RenderField("Log", logPath))
		}
		fmt.Fprintln(w, RenderSeparator(50))
		fmt.Fprint(w, cfg.String())
		return nil

	case "path":
		fmt.Fprintln(w, path)
		return nil

	default:
		return NewValidationErrorWithExample("config subcommand", args.Subcommand, "unknown subcommand", "ntsc-tui config show")
	}
}
