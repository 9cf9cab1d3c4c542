// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command routing and help text for ntsc-tui.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdRender
	CmdConfig
	CmdVersion
	CmdHelp
)

func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdRender:
		return "render"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string // --config overrides the config file
	Verbose    bool   // --verbose lowers the log level to debug
	Quiet      bool   // --quiet suppresses progress output

	// File is the video the editor opens on start.
	File string

	// Subcommand is the first argument after the command, such as "show"
	// for "config show".
	Subcommand string

	// Flags holds the command's own arguments.
	Flags *ArgParser
}

// renderBools are the render flags that take no value.
var renderBools = []string{"ten-bit", "chroma-subsampling", "interlace"}

const usageText = `ntsc-tui %s - NTSC/VHS video effects in the terminal

Usage:
  ntsc-tui [file]                 Open the editor, optionally with a video
  ntsc-tui render <input> -o <output> [options]
                                  Export without the editor
  ntsc-tui config [show|path]     Show the configuration or its location
  ntsc-tui version                Show version information
  ntsc-tui help                   Show this help

Render options:
  -o, --output PATH               Output file; the codec's extension is added
                                  when PATH has none
  --codec h264|ffv1|png           Output codec (default from config)
  --quality 0-50                  H.264 quality, higher is better
  --speed 0-8                     H.264 encode speed, 8 is fastest
  --ten-bit                       H.264 10-bit output
  --bit-depth 8|10|12             FFV1 bit depth
  --chroma-subsampling[=false]    4:2:0 instead of 4:4:4
  --interlace                     Interlaced output (needs an interleaved field mode)
  --duration SECONDS              Length of the export; still images use
                                  render.still_duration_secs when unset
  --preset FILE                   Effect settings to use instead of the last session's

Global options:
  --config PATH                   Use PATH instead of ~/.ntsc-tui/config.toml
  -v, --verbose                   Debug logging
  -q, --quiet                     No progress output
  -h, --help                      Show this help

Editor keys are listed with ? inside the editor.

Environment:
  NTSC_TUI_HOME                   Config directory
  NTSC_TUI_FFMPEG, NTSC_TUI_FFPROBE
                                  Media tool paths
  NO_COLOR                        Disable colored output
`

// PrintUsage writes the help text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "ntsc-tui version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments and returns the command and args.
// Anything that is not a known command opens the editor with that file.
func ParseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)
	args.Flags = NewArgParser(nil)

	if args.help {
		return CmdHelp, args.Args
	}
	if args.version {
		return CmdVersion, args.Args
	}
	if len(remaining) == 0 {
		return CmdTUI, args.Args
	}

	cmd := strings.ToLower(remaining[0])
	rest := remaining[1:]
	switch cmd {
	case "tui", "edit":
		args.Flags = NewArgParser(rest)
		args.File = args.Flags.Positional(0)
		return CmdTUI, args.Args

	case "render", "export":
		args.Flags = NewArgParser(rest, renderBools...)
		return CmdRender, args.Args

	case "config":
		args.Flags = NewArgParser(rest)
		args.Subcommand = args.Flags.Positional(0)
		return CmdConfig, args.Args

	case "version":
		return CmdVersion, args.Args

	case "help":
		return CmdHelp, args.Args
	}

	args.File = remaining[0]
	return CmdTUI, args.Args
}

type globalArgs struct {
	Args
	help    bool
	version bool
}

// parseGlobalFlags removes the global flags from argv. They may appear
// anywhere; a value-taking flag consumes the next argument.
func parseGlobalFlags(argv []string) ([]string, globalArgs) {
	var g globalArgs
	var remaining []string
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-h" || arg == "--help":
			g.help = true
		case arg == "--version":
			g.version = true
		case arg == "-v" || arg == "--verbose":
			g.Verbose = true
		case arg == "-q" || arg == "--quiet":
			g.Quiet = true
		case arg == "--config" && i+1 < len(argv):
			g.ConfigPath = argv[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			g.ConfigPath = strings.TrimPrefix(arg, "--config=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, g
}
