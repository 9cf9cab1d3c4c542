// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package graph

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/ntsc-tui/internal/repaint"
)

// Frame is one decoded rgb24 frame.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
	Seq    uint64
}

// At returns the color of the pixel at x, y.
func (f *Frame) At(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// FrameSink is the display sink of preview graphs. It keeps only the latest
// frame and requests a repaint for new ones, at most maxFPS times a second.
type FrameSink struct {
	width  int
	height int

	mu     sync.Mutex
	latest *Frame
	seq    uint64

	repaint  repaint.Requester
	limiter  *rate.Limiter
	trailing atomic.Bool
}

// NewFrameSink returns a sink producing width x height frames.
func NewFrameSink(width, height int, maxFPS float64, r repaint.Requester) *FrameSink {
	if maxFPS <= 0 {
		maxFPS = 30
	}
	return &FrameSink{
		width:   width,
		height:  height,
		repaint: r,
		limiter: rate.NewLimiter(rate.Limit(maxFPS), 1),
	}
}

// Size returns the frame dimensions.
func (s *FrameSink) Size() (int, int) { return s.width, s.height }

// Latest returns the most recent frame, or nil before the first one.
func (s *FrameSink) Latest() *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Install terminates spec in this sink: frames are letterboxed to the sink
// size and written raw to stdout.
func (s *FrameSink) Install(spec *Spec) error {
	if s.width <= 0 || s.height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", s.width, s.height)
	}
	spec.AddVideoFilter(
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", s.width, s.height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", s.width, s.height),
		"format=rgb24",
	)
	spec.OutputArgs = []string{"-f", "rawvideo", "-pix_fmt", "rgb24"}
	spec.Output = "pipe:1"
	spec.Realtime = true
	spec.Frames = s
	return nil
}

// Consume reads frames from r until it is exhausted. A trailing partial
// frame is discarded.
func (s *FrameSink) Consume(r io.Reader) error {
	size := s.width * s.height * 3
	buf := make([]byte, size)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
		pix := make([]byte, size)
		copy(pix, buf)

		s.mu.Lock()
		s.seq++
		s.latest = &Frame{Width: s.width, Height: s.height, Pix: pix, Seq: s.seq}
		s.mu.Unlock()

		s.notify()
	}
}

// notify requests a repaint, or schedules one trailing repaint when the
// limiter is exhausted so the last frame of a burst is always shown.
func (s *FrameSink) notify() {
	if s.limiter.Allow() {
		s.repaint.RequestRepaint()
		return
	}
	if !s.trailing.CompareAndSwap(false, true) {
		return
	}
	delay := s.limiter.Reserve().Delay()
	time.AfterFunc(delay, func() {
		s.trailing.Store(false)
		s.repaint.RequestRepaint()
	})
}
