// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package graphtest provides in-memory graphs for testing code that drives
// a graph.Graph without starting processes.
package graphtest

import (
	"sync"
	"time"

	"github.com/jeranaias/ntsc-tui/internal/graph"
)

// Graph is a scripted graph. State changes are recorded and applied
// immediately. Messages are only delivered when a test calls Emit, unless
// StepMessages is set.
type Graph struct {
	mu       sync.Mutex
	req      graph.Request
	spec     *graph.Spec
	info     graph.Info
	ready    bool
	state    graph.State
	position time.Duration
	duration time.Duration
	calls    []graph.State
	seeks    []time.Duration

	// SetStateErr is returned by SetState when set.
	SetStateErr error

	// StepMessages makes SetState post one state-changed message per step
	// on the calling goroutine, the way the ffmpeg graph does.
	StepMessages bool
}

// NewGraph returns a graph in the Null state for req.
func NewGraph(req graph.Request) *Graph {
	return &Graph{req: req, state: graph.StateNull}
}

// Request returns the request the graph was built from.
func (g *Graph) Request() graph.Request { return g.req }

// Ready finishes building: it runs the sink installers against a spec for
// info and then calls OnReady. A build error passed in is reported as is.
func (g *Graph) Ready(info graph.Info, buildErr error) error {
	spec := &graph.Spec{Source: g.req.Source, Info: info, Duration: g.req.DurationHint}
	err := buildErr
	if err == nil && info.HasAudio && g.req.InstallAudioSink != nil {
		keep, aerr := g.req.InstallAudioSink(spec)
		spec.NoAudio = !keep
		if aerr != nil {
			err = &graph.BuildError{Stage: "audio sink", Err: aerr}
		}
	}
	if err == nil && g.req.InstallVideoSink != nil {
		if verr := g.req.InstallVideoSink(spec); verr != nil {
			err = &graph.BuildError{Stage: "video sink", Err: verr}
		}
	}

	g.mu.Lock()
	g.spec = spec
	g.info = info
	g.ready = err == nil
	if g.duration == 0 {
		g.duration = info.Duration
	}
	g.mu.Unlock()

	if g.req.OnReady != nil {
		g.req.OnReady(err)
	}
	return err
}

// Spec returns the spec the installers produced.
func (g *Graph) Spec() *graph.Spec {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.spec
}

// Emit delivers msg to the request handler on the calling goroutine.
func (g *Graph) Emit(msg graph.Message) {
	if g.req.OnMessage != nil {
		g.req.OnMessage(msg)
	}
}

// EmitStateChange posts a pipeline state change from old to current.
func (g *Graph) EmitStateChange(old, current graph.State) {
	g.Emit(graph.Message{
		Kind:         graph.MessageStateChanged,
		FromPipeline: true,
		Source:       "pipeline",
		Old:          old,
		Current:      current,
		Pending:      graph.StateVoidPending,
	})
}

// EmitEOS posts end-of-stream.
func (g *Graph) EmitEOS() {
	g.Emit(graph.Message{Kind: graph.MessageEOS, FromPipeline: true, Source: "pipeline"})
}

// EmitError posts an element error.
func (g *Graph) EmitError(err error) {
	g.Emit(graph.Message{Kind: graph.MessageError, Source: "ffmpeg", Err: err})
}

// SetPosition sets what Position reports.
func (g *Graph) SetPosition(d time.Duration) {
	g.mu.Lock()
	g.position = d
	g.mu.Unlock()
}

// SetDuration sets what Duration reports. Zero means unknown.
func (g *Graph) SetDuration(d time.Duration) {
	g.mu.Lock()
	g.duration = d
	g.mu.Unlock()
}

// Calls returns every state passed to SetState, in order.
func (g *Graph) Calls() []graph.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]graph.State(nil), g.calls...)
}

// Count returns how often SetState was called with s.
func (g *Graph) Count(s graph.State) int {
	n := 0
	for _, c := range g.Calls() {
		if c == s {
			n++
		}
	}
	return n
}

// Seeks returns every Seek target.
func (g *Graph) Seeks() []time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]time.Duration(nil), g.seeks...)
}

func (g *Graph) SetState(s graph.State) error {
	g.mu.Lock()
	g.calls = append(g.calls, s)
	if g.SetStateErr != nil {
		g.mu.Unlock()
		return g.SetStateErr
	}
	var steps [][2]graph.State
	if g.StepMessages {
		for cur := g.state; cur != s; {
			next := cur + 1
			if s < cur {
				next = cur - 1
			}
			steps = append(steps, [2]graph.State{cur, next})
			cur = next
		}
	}
	g.state = s
	g.mu.Unlock()

	for _, st := range steps {
		g.EmitStateChange(st[0], st[1])
	}
	return nil
}

func (g *Graph) CurrentState() graph.State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Graph) Position() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position, g.ready
}

func (g *Graph) Duration() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.duration, g.ready && g.duration > 0
}

func (g *Graph) Seek(pos time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seeks = append(g.seeks, pos)
	g.position = pos
	return nil
}

func (g *Graph) Info() (graph.Info, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.info, g.ready
}

// Reconfigure applies fn to the current spec.
func (g *Graph) Reconfigure(fn func(*graph.Spec) error) error {
	g.mu.Lock()
	spec := g.spec
	g.mu.Unlock()
	if spec == nil {
		spec = &graph.Spec{}
	}
	return fn(spec)
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder records builds and returns scripted graphs.
type Builder struct {
	mu     sync.Mutex
	graphs []*Graph

	// Err fails every Build synchronously when set.
	Err error
}

// Build returns a new Graph for req, or b.Err.
func (b *Builder) Build(req graph.Request) (graph.Graph, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	g := NewGraph(req)
	b.mu.Lock()
	b.graphs = append(b.graphs, g)
	b.mu.Unlock()
	return g, nil
}

// Last returns the most recently built graph, or nil.
func (b *Builder) Last() *Graph {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.graphs) == 0 {
		return nil
	}
	return b.graphs[len(b.graphs)-1]
}

// Built returns the number of successful builds.
func (b *Builder) Built() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.graphs)
}
