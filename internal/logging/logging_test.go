// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_FileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ntsc-tui.log")
	closer, err := Init(Options{Level: "debug", Path: path})
	require.NoError(t, err)

	log := For("preview")
	log.Debug().Str("source", "clip.mp4").Msg("bus message")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "preview", entry[FieldComponent])
	assert.Equal(t, "clip.mp4", entry["source"])
	assert.Equal(t, "debug", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	closer, err := Init(Options{Level: "warn", Console: &buf})
	require.NoError(t, err)
	defer closer.Close()

	log := For("render")
	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestInit_RejectsBadLevel(t *testing.T) {
	_, err := Init(Options{Level: "loud"})
	assert.Error(t, err)
}
