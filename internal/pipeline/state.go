// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"fmt"
	"sync"

	"github.com/jeranaias/ntsc-tui/internal/graph"
)

// Status is the tag of a PreviewState.
type Status int

const (
	StatusLoading Status = iota
	StatusLoaded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// PreviewState is Loading, Loaded or Error. Err is set only for Error.
type PreviewState struct {
	Status Status
	Err    error
}

// Metadata is what the loaded graph reports about its source.
type Metadata struct {
	Info  graph.Info
	Known bool
}

// cell is the state shared between the controller and graph goroutines.
// Every method holds the lock for exactly one read or write.
type cell struct {
	mu       sync.Mutex
	state    PreviewState
	metadata Metadata
}

func (c *cell) get() PreviewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// fail latches Error. It reports false when an error was already latched,
// in which case nothing changes.
func (c *cell) fail(err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status == StatusError {
		return false
	}
	c.state = PreviewState{Status: StatusError, Err: err}
	return true
}

// load moves Loading to Loaded. Error stays latched.
func (c *cell) load() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status != StatusLoading {
		return false
	}
	c.state = PreviewState{Status: StatusLoaded}
	return true
}

func (c *cell) setMeta(info graph.Info) {
	c.mu.Lock()
	c.metadata = Metadata{Info: info, Known: true}
	c.mu.Unlock()
}

func (c *cell) meta() Metadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metadata
}

// flag is a mutex-guarded boolean.
type flag struct {
	mu  sync.Mutex
	set bool
}

func (f *flag) raise() {
	f.mu.Lock()
	f.set = true
	f.mu.Unlock()
}

// take reports whether the flag was raised and lowers it.
func (f *flag) take() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	was := f.set
	f.set = false
	return was
}
