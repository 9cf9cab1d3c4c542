// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package repaint provides the cross-goroutine wake primitive of the UI loop.
//
// A Requester is the only way a background goroutine tells the UI goroutine
// that something changed. Requests are fire-and-forget and idempotent:
// several requests before the next frame cause one frame.
package repaint

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// Requester asks the UI loop to run another frame. It must be safe to call
// from any goroutine, any number of times.
type Requester interface {
	RequestRepaint()
}

// Func adapts a function to Requester.
type Func func()

// RequestRepaint calls f.
func (f Func) RequestRepaint() { f() }

// Nop ignores requests.
var Nop Requester = Func(func() {})

// =============================================================================
// BUBBLE TEA PROGRAM
// =============================================================================

// Msg is delivered to the tea model when a repaint was requested.
type Msg struct{}

// Program turns repaint requests into a single in-flight Msg for a
// tea.Program. It may be handed to components before the program exists;
// requests made before Attach are delivered on Attach.
type Program struct {
	mu       sync.Mutex
	program  *tea.Program
	inFlight atomic.Bool
}

// NewProgram returns an unattached Program requester.
func NewProgram() *Program {
	return &Program{}
}

// Attach binds the tea program and flushes an early request.
func (p *Program) Attach(program *tea.Program) {
	p.mu.Lock()
	p.program = program
	p.mu.Unlock()

	if p.inFlight.Load() {
		p.send()
	}
}

// RequestRepaint sends a Msg unless one is already on its way.
func (p *Program) RequestRepaint() {
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}
	p.send()
}

// Ack must be called by the model when it receives Msg so the next request
// produces a new message.
func (p *Program) Ack() {
	p.inFlight.Store(false)
}

func (p *Program) send() {
	p.mu.Lock()
	program := p.program
	p.mu.Unlock()
	if program == nil {
		return
	}
	// Send blocks until the event loop reads it, and callers include the
	// event loop itself.
	go program.Send(Msg{})
}

// =============================================================================
// HEADLESS SIGNAL
// =============================================================================

// Signal is a channel-backed Requester for loops without a tea program.
type Signal struct {
	ch chan struct{}
}

// NewSignal returns a Signal with a one-slot buffer.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// RequestRepaint marks the signal without blocking.
func (s *Signal) RequestRepaint() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// C returns the channel that receives one value per batch of requests.
func (s *Signal) C() <-chan struct{} {
	return s.ch
}

// =============================================================================
// RECORDER
// =============================================================================

// Recorder counts requests. Tests use it to assert wake behaviour.
type Recorder struct {
	n atomic.Int64
}

// RequestRepaint increments the count.
func (r *Recorder) RequestRepaint() { r.n.Add(1) }

// Count returns the number of requests so far.
func (r *Recorder) Count() int { return int(r.n.Load()) }

// Reset zeroes the count.
func (r *Recorder) Reset() { r.n.Store(0) }
