// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging sets up the process logger.
//
// The TUI owns the terminal, so the editor logs to a file. The headless
// render command logs human-readable lines to stderr instead.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FieldComponent tags every entry with the part of the program that wrote it.
const FieldComponent = "component"

// Options configures Init.
type Options struct {
	Level string
	// Path is the log file. Empty logs to Console instead.
	Path string
	// Console receives human-readable output when Path is empty. Nil
	// discards all output.
	Console io.Writer
}

var (
	mu   sync.RWMutex
	root = zerolog.Nop()
)

// Init replaces the root logger. The returned closer flushes and closes the
// log file; it is safe to call when logging to the console.
func Init(opts Options) (io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		level = l
	}

	var (
		out    io.Writer = io.Discard
		closer io.Closer = nopCloser{}
	)
	switch {
	case opts.Path != "":
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		out, closer = f, f
	case opts.Console != nil:
		out = zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: time.Kitchen}
	}

	l := zerolog.New(out).Level(level).With().Timestamp().Logger()
	mu.Lock()
	root = l
	mu.Unlock()
	return closer, nil
}

// Root returns the process logger.
func Root() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// For returns the root logger tagged with a component name.
func For(component string) zerolog.Logger {
	return Root().With().Str(FieldComponent, component).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
