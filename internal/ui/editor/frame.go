// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"

	"github.com/jeranaias/ntsc-tui/internal/graph"
)

const upperHalf = "▀"

// asciiRamp maps luminance to characters on terminals without color.
const asciiRamp = " .:-=+*#%@"

// frameRenderer turns preview frames into terminal lines. Each cell shows
// two pixel rows: the upper as the foreground of "▀", the lower as the
// background. The last rendered frame is cached by sequence number.
type frameRenderer struct {
	profile termenv.Profile
	seq     uint64
	out     string
}

func newFrameRenderer(profile termenv.Profile) *frameRenderer {
	return &frameRenderer{profile: profile}
}

// Render returns f as lines of width f.Width and height ceil(f.Height/2).
func (r *frameRenderer) Render(f *graph.Frame) string {
	if f == nil {
		return ""
	}
	if f.Seq == r.seq && r.out != "" {
		return r.out
	}

	var b strings.Builder
	b.Grow(f.Width * (f.Height/2 + 1) * 24)
	for y := 0; y < f.Height; y += 2 {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < f.Width; x++ {
			tr, tg, tb := f.At(x, y)
			var br, bg, bb uint8
			if y+1 < f.Height {
				br, bg, bb = f.At(x, y+1)
			}
			if r.profile == termenv.Ascii {
				b.WriteByte(rampChar((luma(tr, tg, tb) + luma(br, bg, bb)) / 2))
				continue
			}
			b.WriteString(termenv.String(upperHalf).
				Foreground(r.profile.Color(hex(tr, tg, tb))).
				Background(r.profile.Color(hex(br, bg, bb))).
				String())
		}
	}

	r.seq = f.Seq
	r.out = b.String()
	return r.out
}

func hex(r, g, b uint8) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// luma is the Rec. 601 luminance in [0, 255].
func luma(r, g, b uint8) int {
	return (299*int(r) + 587*int(g) + 114*int(b)) / 1000
}

func rampChar(l int) byte {
	i := l * (len(asciiRamp) - 1) / 255
	return asciiRamp[max(0, min(i, len(asciiRamp)-1))]
}
