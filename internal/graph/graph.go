// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package graph models the external media-processing graph behind preview
// playback and exports, and provides an ffmpeg-backed implementation.
//
// A graph reports its lifecycle through Messages delivered to a Handler on
// one of its own goroutines. Handlers run while the graph holds its bus lock:
// they may write shared state and request a repaint, but they must never call
// back into the graph (SetState, Seek). Transitions that need the graph are
// deferred to the UI goroutine instead.
package graph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// STATES & MESSAGES
// =============================================================================

// State is a graph state. The order matters: a graph moves one step at a time
// between Null and Playing.
type State int

const (
	StateVoidPending State = iota
	StateNull
	StateReady
	StatePaused
	StatePlaying
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateReady:
		return "READY"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	default:
		return "VOID_PENDING"
	}
}

// MessageKind identifies a bus message.
type MessageKind int

const (
	MessageError MessageKind = iota
	MessageEOS
	MessageStateChanged
)

func (k MessageKind) String() string {
	switch k {
	case MessageError:
		return "error"
	case MessageEOS:
		return "eos"
	case MessageStateChanged:
		return "state-changed"
	default:
		return "unknown"
	}
}

// Message is an asynchronous event posted by a running graph.
type Message struct {
	Kind MessageKind

	// FromPipeline is true when the graph itself is the source, as opposed to
	// one of its elements (the decoder, the encoder, a sink).
	FromPipeline bool
	Source       string

	// State-changed fields.
	Old     State
	Current State
	Pending State

	// Err is set for MessageError.
	Err error
}

func (m Message) String() string {
	switch m.Kind {
	case MessageStateChanged:
		return fmt.Sprintf("%s %s: %s -> %s", m.Kind, m.Source, m.Old, m.Current)
	case MessageError:
		return fmt.Sprintf("%s %s: %v", m.Kind, m.Source, m.Err)
	default:
		return fmt.Sprintf("%s %s", m.Kind, m.Source)
	}
}

// Handler receives bus messages on a graph goroutine.
type Handler func(Message)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNoSource is returned when the source file does not exist.
var ErrNoSource = errors.New("source not found")

// BuildError means the graph failed to reach a running state.
type BuildError struct {
	Stage string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("building graph (%s): %v", e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// RuntimeError is an asynchronous failure of an already-running graph.
type RuntimeError struct {
	Source string
	Err    error
}

func (e *RuntimeError) Error() string {
	if e.Source == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// =============================================================================
// MEDIA INFO
// =============================================================================

// Fraction is a rational frame rate.
type Fraction struct {
	Num int
	Den int
}

// FPS returns f as a float, or 0 for an invalid fraction.
func (f Fraction) FPS() float64 {
	if f.Den == 0 {
		return 0
	}
	return float64(f.Num) / float64(f.Den)
}

// IsZero reports whether f is unset.
func (f Fraction) IsZero() bool { return f.Num == 0 || f.Den == 0 }

func (f Fraction) String() string {
	if f.Den == 1 {
		return strconv.Itoa(f.Num)
	}
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

// ParseFraction parses "30000/1001" or "25".
func ParseFraction(s string) (Fraction, error) {
	s = strings.TrimSpace(s)
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.Atoi(num)
	if err != nil {
		return Fraction{}, fmt.Errorf("invalid fraction %q: %w", s, err)
	}
	d := 1
	if found {
		d, err = strconv.Atoi(den)
		if err != nil {
			return Fraction{}, fmt.Errorf("invalid fraction %q: %w", s, err)
		}
	}
	return Fraction{Num: n, Den: d}, nil
}

// InterlaceMode is the source field order.
type InterlaceMode string

const (
	InterlaceProgressive InterlaceMode = "progressive"
	InterlaceTopFirst    InterlaceMode = "tff"
	InterlaceBottomFirst InterlaceMode = "bff"
)

// Info describes the probed source.
type Info struct {
	HasAudio      bool
	IsStillImage  bool
	Width         int
	Height        int
	Framerate     Fraction
	InterlaceMode InterlaceMode
	Duration      time.Duration
}

// =============================================================================
// GRAPH & BUILDER
// =============================================================================

// Graph is a live processing graph.
type Graph interface {
	SetState(State) error
	CurrentState() State
	Position() (time.Duration, bool)
	Duration() (time.Duration, bool)
	Seek(pos time.Duration) error
	// Info is available once the graph finished building.
	Info() (Info, bool)
}

// Reconfigurer is implemented by graphs whose chain can be changed while
// live, keeping state and position.
type Reconfigurer interface {
	Reconfigure(fn func(*Spec) error) error
}

// AudioSinkInstaller terminates the audio branch. It reports whether audio
// is kept at all.
type AudioSinkInstaller func(*Spec) (bool, error)

// VideoSinkInstaller terminates the video branch.
type VideoSinkInstaller func(*Spec) error

// Request describes the graph to build. The sink installers decide whether
// the graph ends in a display sink or an encoder and file.
type Request struct {
	Source           string
	InstallAudioSink AudioSinkInstaller
	InstallVideoSink VideoSinkInstaller
	OnMessage        Handler

	// DurationHint limits the output length; zero means the whole source.
	DurationHint time.Duration
	// ScaleHint rescales to this many scanlines; zero keeps the source size.
	ScaleHint int
	// FramerateHint is used for still images.
	FramerateHint Fraction

	// OnReady is called at most once, off the caller's goroutine, when the
	// graph finished building or failed to.
	OnReady func(error)
}

// Builder constructs graphs. Build returns immediately; the graph finishes
// building in the background and reports through Request.OnReady.
type Builder interface {
	Build(req Request) (Graph, error)
}
