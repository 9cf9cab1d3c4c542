// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package graph

import (
	"strconv"
	"strings"
	"time"
)

// Spec is the mutable description of one ffmpeg invocation. Builders fill
// in the source side; sink installers add filters and the output side.
type Spec struct {
	Source string
	Info   Info

	// Realtime paces decoding at the native frame rate, for previews.
	Realtime bool

	// Duration limits the output; zero is unlimited. Still images loop
	// until Duration.
	Duration time.Duration

	// Framerate overrides the still-image input rate.
	Framerate Fraction

	// VideoFilters run in order. Scale and effect filters are both here.
	VideoFilters []string

	// VideoArgs and AudioArgs are encoder options. NoAudio drops the audio
	// branch entirely.
	VideoArgs []string
	AudioArgs []string
	NoAudio   bool

	// OutputArgs precede Output, for example "-f", "mp4".
	OutputArgs []string
	Output     string

	// Frames consumes raw frames from stdout when Output is "pipe:1".
	Frames *FrameSink
}

// AddVideoFilter appends filters to the chain.
func (s *Spec) AddVideoFilter(filters ...string) {
	for _, f := range filters {
		if f != "" {
			s.VideoFilters = append(s.VideoFilters, f)
		}
	}
}

// Args returns the ffmpeg argument list starting at start. With singleFrame
// the process decodes one frame and exits.
func (s *Spec) Args(start time.Duration, singleFrame bool) []string {
	args := []string{
		"-hide_banner", "-nostdin", "-nostats",
		"-loglevel", "error",
		"-progress", "pipe:2",
	}

	if s.Realtime && !singleFrame {
		args = append(args, "-re")
	}
	if s.Info.IsStillImage {
		args = append(args, "-loop", "1")
		if !s.Framerate.IsZero() {
			args = append(args, "-framerate", s.Framerate.String())
		}
	}
	if start > 0 && !s.Info.IsStillImage {
		args = append(args, "-ss", formatSeconds(start))
	}
	args = append(args, "-i", s.Source)

	if s.Duration > 0 && !singleFrame {
		remaining := s.Duration - start
		if remaining < 0 {
			remaining = 0
		}
		args = append(args, "-t", formatSeconds(remaining))
	}

	if len(s.VideoFilters) > 0 {
		args = append(args, "-vf", strings.Join(s.VideoFilters, ","))
	}
	if singleFrame {
		args = append(args, "-frames:v", "1")
	}
	args = append(args, s.VideoArgs...)

	if s.NoAudio || singleFrame || !s.Info.HasAudio {
		args = append(args, "-an")
	} else {
		args = append(args, s.AudioArgs...)
	}

	args = append(args, s.OutputArgs...)
	args = append(args, "-y", s.Output)
	return args
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
