// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"os"

	"github.com/jeranaias/ntsc-tui/internal/effect"
	"github.com/jeranaias/ntsc-tui/internal/executor"
	"github.com/jeranaias/ntsc-tui/internal/preset"
)

func readPreset(path string) (effect.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return effect.Settings{}, wrap(KindPresetRead, err)
	}
	s, err := preset.Parse(data)
	if err != nil {
		return effect.Settings{}, wrap(KindPresetParse, err)
	}
	return s, nil
}

// LoadPreset applies the preset at path and watches the file for changes.
func (a *App) LoadPreset(path string) error {
	s, err := readPreset(path)
	if err != nil {
		return err
	}
	if err := a.SetEffect(s); err != nil {
		return err
	}
	a.cfg.UI.LastPreset = path
	a.WatchPreset(path)
	return nil
}

// SavePreset writes the current settings to path.
func (a *App) SavePreset(path string) error {
	return wrap(KindPresetSave, preset.Save(path, a.effect))
}

// CopySettings puts the current settings on the clipboard.
func (a *App) CopySettings() error {
	data, err := preset.Marshal(a.effect)
	if err != nil {
		return wrap(KindClipboard, err)
	}
	return wrap(KindClipboard, a.clipboard.WriteAll(string(data)))
}

// PasteSettings applies settings from the clipboard.
func (a *App) PasteSettings() error {
	text, err := a.clipboard.ReadAll()
	if err != nil {
		return wrap(KindClipboard, err)
	}
	s, err := preset.Parse([]byte(text))
	if err != nil {
		return wrap(KindPresetParse, err)
	}
	return a.SetEffect(s)
}

// WatchPreset reloads the preset at path whenever it changes on disk. The
// reload runs as a task on the next frame. Only one file is watched.
func (a *App) WatchPreset(path string) {
	a.stopWatching()
	if path == "" {
		return
	}
	w, err := preset.Watch(path, 0, a.log, func(changed string) {
		a.exec.Spawn(executor.Ready(func(a *App) error {
			return a.reloadPreset(changed)
		}), true)
	})
	if err != nil {
		a.log.Warn().Err(err).Str("preset", path).Msg("cannot watch preset")
		return
	}
	a.watcher = w
}

// WatchedPreset returns the watched preset file, or "".
func (a *App) WatchedPreset() string {
	if a.watcher == nil {
		return ""
	}
	return a.watcher.Path()
}

func (a *App) reloadPreset(path string) error {
	if a.watcher == nil || a.watcher.Path() != path {
		return nil
	}
	s, err := readPreset(path)
	if err != nil {
		return err
	}
	if same(s, a.effect) {
		return nil
	}
	a.log.Info().Str("preset", path).Msg("preset reloaded")
	return a.SetEffect(s)
}

func (a *App) stopWatching() {
	if a.watcher == nil {
		return
	}
	if err := a.watcher.Close(); err != nil {
		a.log.Debug().Err(err).Msg("closing preset watcher")
	}
	a.watcher = nil
}
