// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package effect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())
	assert.True(t, s.UseField.Interleaved())
	assert.NotEmpty(t, s.Filters())
}

func TestValidate(t *testing.T) {
	s := Default()
	s.UseField = "sideways"
	assert.Error(t, s.Validate())

	s = Default()
	s.BandwidthScale = 0
	assert.Error(t, s.Validate())

	s = Default()
	s.VHS.TapeSpeed = "vhs-c"
	assert.Error(t, s.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	a := Default()
	b := a.Clone()
	b.CompositeNoise.Intensity = 0.9
	b.VHS.Sharpen.Intensity = 2
	b.HeadSwitching.Height = 99

	assert.Equal(t, 0.05, a.CompositeNoise.Intensity)
	assert.Equal(t, 0.25, a.VHS.Sharpen.Intensity)
	assert.Equal(t, 8, a.HeadSwitching.Height)
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(a.Clone()), "clones compare equal by value")
}

func TestWithNoiseLevel(t *testing.T) {
	s := Default()

	up := s.WithNoiseLevel(s.NoiseLevel() + 0.05)
	assert.InDelta(t, 0.10, up.NoiseLevel(), 1e-9)
	assert.InDelta(t, 0.05, s.NoiseLevel(), 1e-9, "original untouched")

	off := s.WithNoiseLevel(-1)
	assert.Nil(t, off.CompositeNoise)
	assert.Zero(t, off.NoiseLevel())

	back := off.WithNoiseLevel(2)
	require.NotNil(t, back.CompositeNoise)
	assert.Equal(t, 1.0, back.NoiseLevel())
}

func TestFilters(t *testing.T) {
	s := Settings{UseField: FieldBoth, BandwidthScale: 1}
	assert.Empty(t, s.Filters(), "a neutral effect adds no filters")

	s.ChromaDelayHorizontal = 2.4
	s.ChromaDelayVertical = 1
	s.ChromaNoise = &Noise{Intensity: 0.1}
	s.VHS = &VHS{TapeSpeed: TapeEP}

	chain := strings.Join(s.Filters(), ",")
	assert.Contains(t, chain, "chromashift=cbh=2:cbv=1:crh=2:crv=1")
	assert.Contains(t, chain, "noise=c1s=20:c1f=t:c2s=20:c2f=t")
	assert.Contains(t, chain, "chroma_radius=4")
	assert.NotContains(t, chain, "c0s=")
}

func TestNoiseStrengthIsClamped(t *testing.T) {
	assert.Equal(t, 100, noiseStrength(&Noise{Intensity: 5}))
	assert.Equal(t, 1, noiseStrength(&Noise{Intensity: 0.0001}))
	assert.Zero(t, noiseStrength(nil))
}
