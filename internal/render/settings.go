// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/ntsc-tui/internal/effect"
	"github.com/jeranaias/ntsc-tui/internal/graph"
)

// =============================================================================
// CODECS
// =============================================================================

// CodecKind selects the output format.
type CodecKind string

const (
	CodecH264 CodecKind = "h264"
	CodecFFV1 CodecKind = "ffv1"
	// CodecPNG writes a single still frame.
	CodecPNG CodecKind = "png"
)

// ParseCodec parses a codec name.
func ParseCodec(s string) (CodecKind, error) {
	switch k := CodecKind(strings.ToLower(strings.TrimSpace(s))); k {
	case CodecH264, CodecFFV1, CodecPNG:
		return k, nil
	default:
		return "", fmt.Errorf("unknown codec %q (want h264, ffv1 or png)", s)
	}
}

// Extension returns the default file extension, without the dot.
func (k CodecKind) Extension() string {
	switch k {
	case CodecFFV1:
		return "mkv"
	case CodecPNG:
		return "png"
	default:
		return "mp4"
	}
}

// Label is the human-readable codec name.
func (k CodecKind) Label() string {
	switch k {
	case CodecFFV1:
		return "FFV1 (Lossless)"
	case CodecPNG:
		return "PNG"
	default:
		return "H.264"
	}
}

// H264 holds libx264 options.
type H264 struct {
	// Quality runs from 0 (worst) to 50 (best).
	Quality int `toml:"quality"`
	// EncodeSpeed runs from 0 (veryslow) to 8 (ultrafast).
	EncodeSpeed       int  `toml:"encode_speed"`
	TenBit            bool `toml:"ten_bit"`
	ChromaSubsampling bool `toml:"chroma_subsampling"`
}

// DefaultH264 returns the default H.264 options.
func DefaultH264() H264 {
	return H264{Quality: 23, EncodeSpeed: 5, ChromaSubsampling: true}
}

var x264Presets = []string{
	"veryslow", "slower", "slow", "medium", "fast",
	"faster", "veryfast", "superfast", "ultrafast",
}

// FFV1 holds lossless encoder options.
type FFV1 struct {
	BitDepth          int  `toml:"bit_depth"`
	ChromaSubsampling bool `toml:"chroma_subsampling"`
}

// DefaultFFV1 returns the default FFV1 options.
func DefaultFFV1() FFV1 {
	return FFV1{BitDepth: 8}
}

// Codec is the selected codec with its options. Options of the codecs that
// are not selected are kept so switching back does not lose them.
type Codec struct {
	Kind CodecKind `toml:"kind"`
	H264 H264      `toml:"h264"`
	FFV1 FFV1      `toml:"ffv1"`
}

// DefaultCodec returns H.264 with default options.
func DefaultCodec() Codec {
	return Codec{Kind: CodecH264, H264: DefaultH264(), FFV1: DefaultFFV1()}
}

// Validate checks the options of the selected codec.
func (c Codec) Validate() error {
	switch c.Kind {
	case CodecH264:
		if c.H264.Quality < 0 || c.H264.Quality > 50 {
			return fmt.Errorf("quality must be between 0 and 50, got %d", c.H264.Quality)
		}
		if c.H264.EncodeSpeed < 0 || c.H264.EncodeSpeed >= len(x264Presets) {
			return fmt.Errorf("encode speed must be between 0 and %d, got %d", len(x264Presets)-1, c.H264.EncodeSpeed)
		}
	case CodecFFV1:
		if _, err := PixelFormatFor(c.FFV1.BitDepth, c.FFV1.ChromaSubsampling); err != nil {
			return err
		}
	case CodecPNG:
	default:
		return fmt.Errorf("unknown codec %q", c.Kind)
	}
	return nil
}

// PixelFormatFor returns the encoder input pixel format.
func PixelFormatFor(bitDepth int, chromaSubsampling bool) (string, error) {
	sub := "444"
	if chromaSubsampling {
		sub = "420"
	}
	switch bitDepth {
	case 8:
		return "yuv" + sub + "p", nil
	case 10, 12:
		return fmt.Sprintf("yuv%sp%dle", sub, bitDepth), nil
	default:
		return "", fmt.Errorf("no pixel format for bit depth %d", bitDepth)
	}
}

// =============================================================================
// INTERLACING
// =============================================================================

// Interlace is the output field order.
type Interlace string

const (
	Progressive      Interlace = "progressive"
	TopFieldFirst    Interlace = "tff"
	BottomFieldFirst Interlace = "bff"
)

// ParseInterlace parses an interlace mode.
func ParseInterlace(s string) (Interlace, error) {
	switch i := Interlace(strings.ToLower(strings.TrimSpace(s))); i {
	case Progressive, TopFieldFirst, BottomFieldFirst:
		return i, nil
	case "":
		return Progressive, nil
	default:
		return "", fmt.Errorf("unknown interlace mode %q (want progressive, tff or bff)", s)
	}
}

// InterlaceFor picks the field order matching the effect's field setting.
// Output is progressive unless interlacing was requested and the effect
// processes interleaved fields.
func InterlaceFor(field effect.UseField, interlaced bool) Interlace {
	if !interlaced {
		return Progressive
	}
	switch field {
	case effect.FieldInterleavedUpper:
		return TopFieldFirst
	case effect.FieldInterleavedLower:
		return BottomFieldFirst
	default:
		return Progressive
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings fully describe one export.
type Settings struct {
	OutputPath string
	Codec      Codec
	Interlace  Interlace
	// Duration limits the export; zero renders the whole source. Still
	// image sources need it.
	Duration time.Duration
	Effect   effect.Settings
}

// Validate checks s before any graph is built.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.OutputPath) == "" {
		return errors.New("no output path")
	}
	if err := s.Codec.Validate(); err != nil {
		return err
	}
	if s.Interlace != "" && s.Interlace != Progressive {
		if s.Codec.Kind == CodecPNG {
			return errors.New("still images cannot be interlaced")
		}
		if !s.Effect.UseField.Interleaved() {
			return errors.New("interlaced output needs the effect to use interleaved fields")
		}
	}
	if s.Duration < 0 {
		return errors.New("duration must not be negative")
	}
	return s.Effect.Validate()
}

// WithDefaultExtension adds the codec's extension to a path without one.
func WithDefaultExtension(path string, kind CodecKind) string {
	if path == "" || filepath.Ext(path) != "" {
		return path
	}
	return path + "." + kind.Extension()
}

// AudioSink returns the installer for the audio branch. Still images have
// none.
func (s Settings) AudioSink() graph.AudioSinkInstaller {
	return func(spec *graph.Spec) (bool, error) {
		switch s.Codec.Kind {
		case CodecH264:
			spec.AudioArgs = []string{"-c:a", "aac"}
		case CodecFFV1:
			spec.AudioArgs = []string{"-c:a", "flac"}
		default:
			return false, nil
		}
		return true, nil
	}
}

// VideoSink returns the installer that ends the video branch in the effect,
// the encoder, the muxer and the output file.
func (s Settings) VideoSink() graph.VideoSinkInstaller {
	return func(spec *graph.Spec) error {
		spec.AddVideoFilter(s.Effect.Filters()...)

		var pixFmt string
		var err error
		switch s.Codec.Kind {
		case CodecH264:
			h := s.Codec.H264
			depth := 8
			if h.TenBit {
				depth = 10
			}
			if pixFmt, err = PixelFormatFor(depth, h.ChromaSubsampling); err != nil {
				return err
			}
			if h.ChromaSubsampling {
				// libx264 cannot encode 4:2:0 with odd dimensions.
				spec.AddVideoFilter("pad=ceil(iw/2)*2:ceil(ih/2)*2")
			}
			spec.VideoArgs = []string{
				"-c:v", "libx264",
				"-crf", strconv.Itoa(50 - h.Quality),
				"-preset", x264Presets[h.EncodeSpeed],
			}
			spec.OutputArgs = []string{"-f", "mp4", "-movflags", "+faststart"}
		case CodecFFV1:
			f := s.Codec.FFV1
			if pixFmt, err = PixelFormatFor(f.BitDepth, f.ChromaSubsampling); err != nil {
				return err
			}
			spec.VideoArgs = []string{"-c:v", "ffv1", "-level", "3"}
			spec.OutputArgs = []string{"-f", "matroska"}
		case CodecPNG:
			pixFmt = "rgb24"
			spec.VideoArgs = []string{"-c:v", "png", "-frames:v", "1"}
			spec.OutputArgs = []string{"-f", "image2", "-update", "1"}
		default:
			return fmt.Errorf("unknown codec %q", s.Codec.Kind)
		}

		switch s.Interlace {
		case TopFieldFirst:
			spec.AddVideoFilter("interlace=scan=tff")
		case BottomFieldFirst:
			spec.AddVideoFilter("interlace=scan=bff")
		}
		spec.AddVideoFilter("format=" + pixFmt)
		spec.Output = s.OutputPath
		return nil
	}
}
