// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package preset reads and writes effect presets.
//
// A preset is the JSON form of effect.Settings plus a format version. The
// same text is used for preset files and for the clipboard. Blocks missing
// from a preset are disabled.
package preset

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/jeranaias/ntsc-tui/internal/effect"
	"github.com/jeranaias/ntsc-tui/internal/util"
)

// Version is written to every preset.
const Version = 1

// ErrNewerVersion is returned for presets written by a newer release.
var ErrNewerVersion = errors.New("preset was written by a newer version")

type document struct {
	Version int `json:"version"`
	effect.Settings
}

// Parse decodes a preset. Scalars left out fall back to their defaults so
// hand-written presets stay valid.
func Parse(data []byte) (effect.Settings, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return effect.Settings{}, fmt.Errorf("decoding preset: %w", err)
	}
	if doc.Version > Version {
		return effect.Settings{}, fmt.Errorf("%w (version %d)", ErrNewerVersion, doc.Version)
	}

	s := doc.Settings
	def := effect.Default()
	if s.UseField == "" {
		s.UseField = def.UseField
	}
	if s.BandwidthScale == 0 {
		s.BandwidthScale = def.BandwidthScale
	}
	if err := s.Validate(); err != nil {
		return effect.Settings{}, fmt.Errorf("invalid preset: %w", err)
	}
	return s, nil
}

// Marshal encodes s as an indented preset.
func Marshal(s effect.Settings) ([]byte, error) {
	data, err := json.MarshalIndent(document{Version: Version, Settings: s}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding preset: %w", err)
	}
	return data, nil
}

// Load reads a preset file.
func Load(path string) (effect.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return effect.Settings{}, err
	}
	return Parse(data)
}

// Save writes s to path atomically.
func Save(path string, s effect.Settings) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, append(data, '\n'), 0644)
}
