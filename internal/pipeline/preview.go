// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline controls the preview graph of the loaded video.
//
// Graph goroutines only ever write the preview's shared cells and request a
// repaint. Which transitions happen where:
//
//	error         -> Error    inside message dispatch (latched)
//	Ready->Paused -> Loaded   inside message dispatch
//	EOS           -> pause    flag raised in dispatch, paused by Poll
//
// The pause cannot be issued from dispatch because the graph holds its bus
// lock there.
package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/ntsc-tui/internal/effect"
	"github.com/jeranaias/ntsc-tui/internal/graph"
	"github.com/jeranaias/ntsc-tui/internal/repaint"
)

// DefaultFramerate is used for still images.
var DefaultFramerate = graph.Fraction{Num: 30, Den: 1}

// Options configures a preview.
type Options struct {
	Builder graph.Builder
	Repaint repaint.Requester
	Source  string
	Effect  effect.Settings

	// FrameWidth and FrameHeight are the preview size in pixels.
	FrameWidth  int
	FrameHeight int
	MaxFPS      float64

	ScaleHint     int
	FramerateHint graph.Fraction

	Logger zerolog.Logger
}

// Preview owns the preview graph of one source.
type Preview struct {
	source  string
	graph   graph.Graph
	sink    *graph.FrameSink
	state   *cell
	atEOS   *flag
	repaint repaint.Requester
	log     zerolog.Logger

	filtersMu   sync.Mutex
	baseFilters []string

	closeOnce sync.Once
	closeErr  error
}

// NewPreview starts building a preview graph and asks it to pause once
// built. The returned preview is Loading.
func NewPreview(opts Options) (*Preview, error) {
	if opts.Builder == nil {
		return nil, errors.New("no graph builder")
	}
	r := opts.Repaint
	if r == nil {
		r = repaint.Nop
	}
	framerate := opts.FramerateHint
	if framerate.IsZero() {
		framerate = DefaultFramerate
	}

	p := &Preview{
		source:  opts.Source,
		sink:    graph.NewFrameSink(opts.FrameWidth, opts.FrameHeight, opts.MaxFPS, r),
		state:   &cell{},
		atEOS:   &flag{},
		repaint: r,
		log:     opts.Logger.With().Str("component", "preview").Logger(),
	}

	g, err := opts.Builder.Build(graph.Request{
		Source: opts.Source,
		// A terminal has nowhere to play audio.
		InstallAudioSink: func(*graph.Spec) (bool, error) { return false, nil },
		InstallVideoSink: p.videoSink(opts.Effect),
		OnMessage:        p.handleMessage,
		ScaleHint:        opts.ScaleHint,
		FramerateHint:    framerate,
		OnReady:          p.onReady,
	})
	if err != nil {
		return nil, err
	}
	p.graph = g

	if err := g.SetState(graph.StatePaused); err != nil {
		_ = g.SetState(graph.StateNull)
		return nil, fmt.Errorf("pausing preview: %w", err)
	}
	return p, nil
}

func (p *Preview) videoSink(settings effect.Settings) graph.VideoSinkInstaller {
	return func(spec *graph.Spec) error {
		p.filtersMu.Lock()
		p.baseFilters = slices.Clone(spec.VideoFilters)
		p.filtersMu.Unlock()

		spec.AddVideoFilter(settings.Filters()...)
		return p.sink.Install(spec)
	}
}

// =============================================================================
// GRAPH CALLBACKS
// =============================================================================

func (p *Preview) onReady(err error) {
	if err != nil {
		p.fail(err)
	}
}

func (p *Preview) handleMessage(msg graph.Message) {
	defer func() {
		if r := recover(); r != nil {
			p.fail(fmt.Errorf("preview message handler: %v", r))
		}
	}()
	p.log.Debug().Stringer("msg", msg).Msg("bus message")

	switch msg.Kind {
	case graph.MessageError:
		p.fail(msg.Err)
	case graph.MessageEOS:
		if !msg.FromPipeline {
			return
		}
		p.atEOS.raise()
		p.repaint.RequestRepaint()
	case graph.MessageStateChanged:
		if !msg.FromPipeline {
			return
		}
		if msg.Old == graph.StateReady && (msg.Current == graph.StatePaused || msg.Current == graph.StatePlaying) {
			if p.state.load() {
				p.repaint.RequestRepaint()
			}
		}
	}
}

// fail latches Error and wakes the UI, once.
func (p *Preview) fail(err error) {
	if err == nil {
		err = errors.New("unknown graph error")
	}
	if p.state.fail(err) {
		p.log.Warn().Err(err).Msg("preview failed")
		p.repaint.RequestRepaint()
	}
}

// =============================================================================
// UI THREAD
// =============================================================================

// Poll runs once per UI frame. It performs the pause requested by an
// end-of-stream and returns the current state.
func (p *Preview) Poll() PreviewState {
	st := p.state.get()
	if st.Status != StatusLoaded {
		return st
	}
	if !p.state.meta().Known {
		if info, ok := p.graph.Info(); ok {
			p.state.setMeta(info)
		}
	}
	if p.atEOS.take() {
		if err := p.graph.SetState(graph.StatePaused); err != nil {
			p.log.Warn().Err(err).Msg("pausing at end of stream")
		}
	}
	return st
}

// State returns the shared state without side effects.
func (p *Preview) State() PreviewState { return p.state.get() }

// Metadata returns what the graph reported about the source once loaded.
func (p *Preview) Metadata() Metadata { return p.state.meta() }

// Source returns the path being previewed.
func (p *Preview) Source() string { return p.source }

// Frame returns the latest rendered frame, or nil.
func (p *Preview) Frame() *graph.Frame { return p.sink.Latest() }

// Playing reports whether the graph is playing.
func (p *Preview) Playing() bool { return p.graph.CurrentState() == graph.StatePlaying }

// Position returns the playback position.
func (p *Preview) Position() (time.Duration, bool) { return p.graph.Position() }

// Duration returns the source duration when known.
func (p *Preview) Duration() (time.Duration, bool) { return p.graph.Duration() }

// TogglePlaying pauses a playing preview or plays a paused one. Playing at
// the end restarts from the beginning.
func (p *Preview) TogglePlaying() error {
	switch p.graph.CurrentState() {
	case graph.StatePaused, graph.StateReady:
		pos, okPos := p.graph.Position()
		dur, okDur := p.graph.Duration()
		if okPos && okDur && pos >= dur {
			if err := p.graph.Seek(0); err != nil {
				return err
			}
		}
		return p.graph.SetState(graph.StatePlaying)
	case graph.StatePlaying:
		return p.graph.SetState(graph.StatePaused)
	}
	return nil
}

// Seek moves playback to pos.
func (p *Preview) Seek(pos time.Duration) error {
	return p.graph.Seek(pos)
}

// UpdateEffect swaps the effect filters of the live graph.
func (p *Preview) UpdateEffect(settings effect.Settings) error {
	rc, ok := p.graph.(graph.Reconfigurer)
	if !ok {
		return nil
	}
	return rc.Reconfigure(func(spec *graph.Spec) error {
		p.filtersMu.Lock()
		spec.VideoFilters = slices.Clone(p.baseFilters)
		p.filtersMu.Unlock()

		spec.AddVideoFilter(settings.Filters()...)
		return p.sink.Install(spec)
	})
}

// Close stops the graph. Later calls return the first result.
func (p *Preview) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.graph.SetState(graph.StateNull)
	})
	return p.closeErr
}
