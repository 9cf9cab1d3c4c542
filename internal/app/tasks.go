// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"github.com/jeranaias/ntsc-tui/internal/executor"
	"github.com/jeranaias/ntsc-tui/internal/render"
)

// afterDialog spawns a task that waits for the dialog and then runs then
// with the chosen path. A dismissed dialog yields ErrUserCancelled.
func (a *App) afterDialog(req FileRequest, then func(a *App, path string) error) {
	fut := a.dialogs.PickFile(req)
	a.exec.Spawn(executor.Await(fut, func(path string) executor.Action[*App] {
		return func(a *App) error {
			if path == "" {
				return ErrUserCancelled
			}
			return then(a, path)
		}
	}), false)
}

// OpenVideoDialog asks for a video and loads it.
func (a *App) OpenVideoDialog() {
	a.afterDialog(FileRequest{
		Title:      "Open video",
		Dir:        a.outputDir(),
		Extensions: VideoExtensions,
	}, (*App).LoadVideo)
}

// RenderDialog asks for an output file and starts exporting to it.
func (a *App) RenderDialog() {
	if a.preview == nil {
		a.HandleError(wrap(KindCreateRenderJob, errNoVideo))
		return
	}
	ext := a.cfg.Render.Codec.Kind.Extension()
	a.afterDialog(FileRequest{
		Title: "Render to",
		Dir:   a.outputDir(),
		Name:  suggestName(a.preview.Source(), ext),
		Save:  true,
	}, func(a *App, path string) error {
		_, err := a.StartRender(a.RenderSettings(path))
		return err
	})
}

// SaveImageDialog asks for a file and saves the current frame to it.
func (a *App) SaveImageDialog() {
	if a.preview == nil {
		a.HandleError(wrap(KindCreateRenderJob, errNoVideo))
		return
	}
	a.afterDialog(FileRequest{
		Title: "Save image",
		Dir:   a.outputDir(),
		Name:  suggestName(a.preview.Source(), render.CodecPNG.Extension()),
		Save:  true,
	}, func(a *App, path string) error {
		_, err := a.SaveImage(path)
		return err
	})
}

// LoadPresetDialog asks for a preset file and applies it.
func (a *App) LoadPresetDialog() {
	a.afterDialog(FileRequest{
		Title:      "Load preset",
		Extensions: []string{"json"},
	}, (*App).LoadPreset)
}

// SavePresetDialog asks where to save the current settings.
func (a *App) SavePresetDialog() {
	a.afterDialog(FileRequest{
		Title: "Save preset",
		Name:  "settings.json",
		Save:  true,
	}, (*App).SavePreset)
}
