// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the commands that run
// without the editor.
//
// # Key Types
//
//   - Command: The command to run
//   - Args: Parsed global flags plus the command's own ArgParser
//   - RenderRequest: A checked render command
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdRender:
//	    req, err := cli.ParseRender(args.Flags, cfg)
//	    ...
//	    err = cli.RunRender(ctx, cli.RenderOptions{Request: req, Config: cfg, Builder: b, Out: os.Stdout})
//	case cli.CmdConfig:
//	    err = cli.HandleConfig(args, cfg, path, os.Stdout)
//	}
//
// Commands return errors; GetExitCode maps them to exit codes.
package cli
