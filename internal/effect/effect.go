// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package effect holds the analog-video effect settings and maps them onto
// an ffmpeg filter chain.
//
// The settings are passed through preview and render graphs as an opaque
// value; only this package knows what they mean.
package effect

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// UseField selects which fields of the frame the effect processes.
type UseField string

const (
	FieldAlternating      UseField = "alternating"
	FieldUpper            UseField = "upper"
	FieldLower            UseField = "lower"
	FieldBoth             UseField = "both"
	FieldInterleavedUpper UseField = "interleaved_upper"
	FieldInterleavedLower UseField = "interleaved_lower"
)

// Interleaved reports whether fields are processed as separate frames. Only
// then can an export be written interlaced.
func (f UseField) Interleaved() bool {
	return f == FieldInterleavedUpper || f == FieldInterleavedLower
}

// TapeSpeed is the emulated VHS recording speed.
type TapeSpeed string

const (
	TapeNone TapeSpeed = "none"
	TapeSP   TapeSpeed = "sp"
	TapeLP   TapeSpeed = "lp"
	TapeEP   TapeSpeed = "ep"
)

// chromaRadius approximates the chroma bandwidth cut of each speed.
func (t TapeSpeed) chromaRadius() int {
	switch t {
	case TapeSP:
		return 2
	case TapeLP:
		return 3
	case TapeEP:
		return 4
	default:
		return 0
	}
}

// Noise is a fractal noise layer.
type Noise struct {
	Frequency float64 `json:"frequency" toml:"frequency"`
	Intensity float64 `json:"intensity" toml:"intensity"`
	Detail    int     `json:"detail" toml:"detail"`
}

type HeadSwitching struct {
	Height     int     `json:"height" toml:"height"`
	Offset     int     `json:"offset" toml:"offset"`
	HorizShift float64 `json:"horiz_shift" toml:"horiz_shift"`
}

type TrackingNoise struct {
	Height         int     `json:"height" toml:"height"`
	WaveIntensity  float64 `json:"wave_intensity" toml:"wave_intensity"`
	SnowIntensity  float64 `json:"snow_intensity" toml:"snow_intensity"`
	NoiseIntensity float64 `json:"noise_intensity" toml:"noise_intensity"`
}

type Ringing struct {
	Frequency float64 `json:"frequency" toml:"frequency"`
	Power     float64 `json:"power" toml:"power"`
	Intensity float64 `json:"intensity" toml:"intensity"`
}

type Sharpen struct {
	Intensity float64 `json:"intensity" toml:"intensity"`
	Frequency float64 `json:"frequency" toml:"frequency"`
}

type EdgeWave struct {
	Intensity float64 `json:"intensity" toml:"intensity"`
	Speed     float64 `json:"speed" toml:"speed"`
	Frequency float64 `json:"frequency" toml:"frequency"`
	Detail    int     `json:"detail" toml:"detail"`
}

type VHS struct {
	TapeSpeed  TapeSpeed `json:"tape_speed" toml:"tape_speed"`
	ChromaLoss float64   `json:"chroma_loss" toml:"chroma_loss"`
	Sharpen    *Sharpen  `json:"sharpen,omitempty" toml:"sharpen,omitempty"`
	EdgeWave   *EdgeWave `json:"edge_wave,omitempty" toml:"edge_wave,omitempty"`
}

// Settings is the full effect configuration. Optional blocks are nil when
// disabled.
type Settings struct {
	RandomSeed            int            `json:"random_seed" toml:"random_seed"`
	UseField              UseField       `json:"use_field" toml:"use_field"`
	LumaSmear             float64        `json:"luma_smear" toml:"luma_smear"`
	CompositePreemphasis  float64        `json:"composite_preemphasis" toml:"composite_preemphasis"`
	HeadSwitching         *HeadSwitching `json:"head_switching,omitempty" toml:"head_switching,omitempty"`
	TrackingNoise         *TrackingNoise `json:"tracking_noise,omitempty" toml:"tracking_noise,omitempty"`
	CompositeNoise        *Noise         `json:"composite_noise,omitempty" toml:"composite_noise,omitempty"`
	Ringing               *Ringing       `json:"ringing,omitempty" toml:"ringing,omitempty"`
	LumaNoise             *Noise         `json:"luma_noise,omitempty" toml:"luma_noise,omitempty"`
	ChromaNoise           *Noise         `json:"chroma_noise,omitempty" toml:"chroma_noise,omitempty"`
	SnowIntensity         float64        `json:"snow_intensity" toml:"snow_intensity"`
	ChromaPhaseError      float64        `json:"chroma_phase_error" toml:"chroma_phase_error"`
	ChromaDelayHorizontal float64        `json:"chroma_delay_horizontal" toml:"chroma_delay_horizontal"`
	ChromaDelayVertical   int            `json:"chroma_delay_vertical" toml:"chroma_delay_vertical"`
	VHS                   *VHS           `json:"vhs_settings,omitempty" toml:"vhs_settings,omitempty"`
	ChromaVertBlend       bool           `json:"chroma_vert_blend" toml:"chroma_vert_blend"`
	BandwidthScale        float64        `json:"bandwidth_scale" toml:"bandwidth_scale"`
}

// Default returns the stock look.
func Default() Settings {
	return Settings{
		UseField:             FieldInterleavedUpper,
		LumaSmear:            0.5,
		CompositePreemphasis: 1.0,
		HeadSwitching:        &HeadSwitching{Height: 8, Offset: 3, HorizShift: 72},
		TrackingNoise:        &TrackingNoise{Height: 12, WaveIntensity: 15, SnowIntensity: 0.025, NoiseIntensity: 0.25},
		CompositeNoise:       &Noise{Frequency: 0.5, Intensity: 0.05, Detail: 1},
		Ringing:              &Ringing{Frequency: 0.45, Power: 4, Intensity: 4},
		LumaNoise:            &Noise{Frequency: 0.5, Intensity: 0.01, Detail: 1},
		ChromaNoise:          &Noise{Frequency: 0.05, Intensity: 0.1, Detail: 2},
		SnowIntensity:        0.00025,
		VHS: &VHS{
			TapeSpeed:  TapeLP,
			ChromaLoss: 0.000025,
			Sharpen:    &Sharpen{Intensity: 0.25, Frequency: 1},
			EdgeWave:   &EdgeWave{Intensity: 0.5, Speed: 4, Frequency: 0.05, Detail: 2},
		},
		ChromaVertBlend: true,
		BandwidthScale:  1.0,
	}
}

// Equal reports whether s and o describe the same look, comparing the
// optional blocks by value.
func (s Settings) Equal(o Settings) bool { return reflect.DeepEqual(s, o) }

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	c := s
	if s.HeadSwitching != nil {
		v := *s.HeadSwitching
		c.HeadSwitching = &v
	}
	if s.TrackingNoise != nil {
		v := *s.TrackingNoise
		c.TrackingNoise = &v
	}
	c.CompositeNoise = cloneNoise(s.CompositeNoise)
	c.LumaNoise = cloneNoise(s.LumaNoise)
	c.ChromaNoise = cloneNoise(s.ChromaNoise)
	if s.Ringing != nil {
		v := *s.Ringing
		c.Ringing = &v
	}
	if s.VHS != nil {
		v := *s.VHS
		if s.VHS.Sharpen != nil {
			sh := *s.VHS.Sharpen
			v.Sharpen = &sh
		}
		if s.VHS.EdgeWave != nil {
			ew := *s.VHS.EdgeWave
			v.EdgeWave = &ew
		}
		c.VHS = &v
	}
	return c
}

func cloneNoise(n *Noise) *Noise {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

// Validate checks ranges that would produce an invalid filter chain.
func (s Settings) Validate() error {
	switch s.UseField {
	case FieldAlternating, FieldUpper, FieldLower, FieldBoth, FieldInterleavedUpper, FieldInterleavedLower:
	default:
		return fmt.Errorf("invalid use_field %q", s.UseField)
	}
	if s.BandwidthScale <= 0 || math.IsNaN(s.BandwidthScale) {
		return fmt.Errorf("bandwidth_scale must be positive, got %v", s.BandwidthScale)
	}
	if s.LumaSmear < 0 {
		return fmt.Errorf("luma_smear must not be negative")
	}
	if s.VHS != nil {
		switch s.VHS.TapeSpeed {
		case TapeNone, TapeSP, TapeLP, TapeEP:
		default:
			return fmt.Errorf("invalid tape_speed %q", s.VHS.TapeSpeed)
		}
	}
	return nil
}

// NoiseLevel returns the composite noise intensity, or 0 when disabled.
func (s Settings) NoiseLevel() float64 {
	if s.CompositeNoise == nil {
		return 0
	}
	return s.CompositeNoise.Intensity
}

// WithNoiseLevel returns a copy with the composite noise intensity set,
// clamped to [0, 1]. A level of zero disables the layer.
func (s Settings) WithNoiseLevel(level float64) Settings {
	c := s.Clone()
	level = math.Max(0, math.Min(1, level))
	if level == 0 {
		c.CompositeNoise = nil
		return c
	}
	if c.CompositeNoise == nil {
		c.CompositeNoise = &Noise{Frequency: 0.5, Detail: 1}
	}
	c.CompositeNoise.Intensity = level
	return c
}

// =============================================================================
// FILTER CHAIN
// =============================================================================

// Filters returns the ffmpeg video filters for s, in processing order.
func (s Settings) Filters() []string {
	var out []string

	if s.LumaSmear > 0 {
		out = append(out, "gblur=sigma="+ftoa(s.LumaSmear*s.BandwidthScale)+":sigmaV=0")
	}
	if s.Ringing != nil && s.Ringing.Intensity > 0 {
		amount := math.Min(s.Ringing.Intensity/4, 1.5)
		out = append(out, "unsharp=luma_msize_x=7:luma_msize_y=3:luma_amount="+ftoa(amount))
	}

	if s.ChromaDelayHorizontal != 0 || s.ChromaDelayVertical != 0 {
		h := int(math.Round(s.ChromaDelayHorizontal))
		v := s.ChromaDelayVertical
		out = append(out, fmt.Sprintf("chromashift=cbh=%d:cbv=%d:crh=%d:crv=%d", h, v, h, v))
	}
	if s.ChromaPhaseError != 0 {
		out = append(out, "hue=h="+ftoa(s.ChromaPhaseError*180))
	}

	if s.VHS != nil {
		if r := s.VHS.TapeSpeed.chromaRadius(); r > 0 {
			out = append(out, fmt.Sprintf("boxblur=luma_radius=0:luma_power=0:chroma_radius=%d", r))
		}
		if s.VHS.Sharpen != nil && s.VHS.Sharpen.Intensity > 0 {
			out = append(out, "unsharp=luma_msize_x=5:luma_msize_y=5:luma_amount="+ftoa(s.VHS.Sharpen.Intensity*4))
		}
	}
	if s.ChromaVertBlend {
		out = append(out, "boxblur=luma_radius=0:luma_power=0:chroma_radius=1:chroma_power=1")
	}

	if n := noiseStrength(s.CompositeNoise) + noiseStrength(s.LumaNoise) + snowStrength(s.SnowIntensity); n > 0 {
		out = append(out, fmt.Sprintf("noise=c0s=%d:c0f=t", n))
	}
	if n := noiseStrength(s.ChromaNoise); n > 0 {
		out = append(out, fmt.Sprintf("noise=c1s=%d:c1f=t:c2s=%d:c2f=t", n, n))
	}

	return out
}

// noiseStrength maps an intensity onto ffmpeg's 0-100 noise scale.
func noiseStrength(n *Noise) int {
	if n == nil || n.Intensity <= 0 {
		return 0
	}
	return clampStrength(n.Intensity * 200)
}

func snowStrength(intensity float64) int {
	if intensity <= 0 {
		return 0
	}
	return clampStrength(intensity * 4000)
}

func clampStrength(v float64) int {
	s := int(math.Round(v))
	if s < 1 {
		s = 1
	}
	if s > 100 {
		s = 100
	}
	return s
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
