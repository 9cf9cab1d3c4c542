// ntsc-tui - NTSC/VHS video effects in the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ntsc-tui/internal/app"
	"github.com/jeranaias/ntsc-tui/internal/cli"
	"github.com/jeranaias/ntsc-tui/internal/config"
	"github.com/jeranaias/ntsc-tui/internal/graph"
	"github.com/jeranaias/ntsc-tui/internal/logging"
	"github.com/jeranaias/ntsc-tui/internal/repaint"
	"github.com/jeranaias/ntsc-tui/internal/ui/editor"
	"github.com/jeranaias/ntsc-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
	case cli.CmdConfig:
		err = runConfig(args)
	case cli.CmdRender:
		err = runRender(args)
	default:
		err = runTUI(args)
	}

	if err != nil {
		cli.DisplayError(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}

// loadConfig loads the config named by --config, or the default one. It
// also returns the path the config is saved to.
func loadConfig(args cli.Args) (*config.Config, string, error) {
	path := args.ConfigPath
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		if path, err = config.ConfigPath(); err != nil {
			return nil, "", cli.NewCommandError("config", "locate", "no home directory", err)
		}
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFromPath(path)
	}
	if err != nil {
		return nil, "", cli.NewCommandError("config", "load", path, err)
	}
	if args.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, path, nil
}

func newBuilder(cfg *config.Config) *graph.FFmpegBuilder {
	b := graph.NewFFmpegBuilder(cfg.FFmpeg.FFmpeg, cfg.FFmpeg.FFprobe, logging.For("graph"))
	b.ProbeTimeout = time.Duration(cfg.FFmpeg.ProbeTimeoutSecs) * time.Second
	return b
}

func runConfig(args cli.Args) error {
	cfg, path, err := loadConfig(args)
	if err != nil {
		return err
	}
	return cli.HandleConfig(args, cfg, path, os.Stdout)
}

// runRender exports without the editor. Logs go to stderr; only warnings
// unless --verbose, so they do not break the progress line.
func runRender(args cli.Args) error {
	cfg, _, err := loadConfig(args)
	if err != nil {
		return err
	}
	req, err := cli.ParseRender(args.Flags, cfg)
	if err != nil {
		return err
	}

	level := "warn"
	if args.Verbose {
		level = "debug"
	}
	closer, err := logging.Init(logging.Options{Level: level, Console: os.Stderr})
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.RunRender(ctx, cli.RenderOptions{
		Request: req,
		Config:  cfg,
		Builder: newBuilder(cfg),
		Logger:  logging.Root(),
		Out:     os.Stdout,
		Quiet:   args.Quiet,
	})
}

// runTUI starts the editor. The config, including the effect settings, is
// saved when the editor exits.
func runTUI(args cli.Args) error {
	if !cli.IsTTY() {
		return cli.NewCommandError("editor", "start", "stdin is not a terminal; use 'ntsc-tui render' in scripts", nil)
	}

	cfg, cfgPath, err := loadConfig(args)
	if err != nil {
		return err
	}
	logPath, err := cfg.LogPath()
	if err != nil {
		return err
	}
	closer, err := logging.Init(logging.Options{Level: cfg.Log.Level, Path: logPath})
	if err != nil {
		return err
	}
	defer closer.Close()

	log := logging.For("main")
	log.Info().
		Str("version", Version).
		Str("config", cfgPath).
		Msg("starting editor")

	rp := repaint.NewProgram()
	picker := editor.NewPicker()
	a := app.New(app.Options{
		Builder:   newBuilder(cfg),
		Repaint:   rp,
		Dialogs:   picker,
		Clipboard: app.SystemClipboard{},
		Config:    cfg,
		Logger:    logging.Root(),
	})
	defer a.Close()

	if cfg.UI.LastPreset != "" {
		a.WatchPreset(cfg.UI.LastPreset)
	}
	if args.File != "" {
		a.HandleError(a.LoadVideo(args.File))
	}

	m := editor.New(editor.Options{
		App:        a,
		Picker:     picker,
		Acker:      rp,
		Theme:      styles.NewTheme(cfg.UI.Theme),
		Version:    Version,
		ConfigPath: cfgPath,
		LogPath:    logPath,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	rp.Attach(p)

	_, runErr := p.Run()

	if err := config.SaveTOML(a.Config(), cfgPath); err != nil {
		log.Warn().Err(err).Msg("saving config")
	}
	log.Info().Msg("editor closed")
	return runErr
}
