// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/ntsc-tui/internal/config"
	"github.com/jeranaias/ntsc-tui/internal/effect"
	"github.com/jeranaias/ntsc-tui/internal/executor"
	"github.com/jeranaias/ntsc-tui/internal/graph"
	"github.com/jeranaias/ntsc-tui/internal/pipeline"
	"github.com/jeranaias/ntsc-tui/internal/preset"
	"github.com/jeranaias/ntsc-tui/internal/render"
	"github.com/jeranaias/ntsc-tui/internal/repaint"
)

var errNoVideo = errors.New("no video loaded")

// Options configures an App.
type Options struct {
	Builder   graph.Builder
	Repaint   repaint.Requester
	Dialogs   Dialogs
	Clipboard Clipboard
	Config    *config.Config
	Clock     render.Clock
	Logger    zerolog.Logger
}

// App is the editor state. All methods must be called from the UI
// goroutine.
type App struct {
	exec      *executor.Executor[*App]
	builder   graph.Builder
	repaint   repaint.Requester
	dialogs   Dialogs
	clipboard Clipboard
	cfg       *config.Config
	clock     render.Clock
	log       zerolog.Logger
	graphLog  zerolog.Logger

	preview *pipeline.Preview
	effect  effect.Settings
	jobs    []*render.Job
	undo    undoer
	lastErr error
	watcher *preset.Watcher
}

// New creates an App with the effect settings from the config.
func New(opts Options) *App {
	r := opts.Repaint
	if r == nil {
		r = repaint.Nop
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	dialogs := opts.Dialogs
	if dialogs == nil {
		dialogs = NoDialogs{}
	}
	cb := opts.Clipboard
	if cb == nil {
		cb = SystemClipboard{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = render.MonotonicClock()
	}

	return &App{
		exec:      executor.New[*App](r),
		builder:   opts.Builder,
		repaint:   r,
		dialogs:   dialogs,
		clipboard: cb,
		cfg:       cfg,
		clock:     clock,
		log:       opts.Logger.With().Str("component", "app").Logger(),
		graphLog:  opts.Logger,
		effect:    cfg.Effect.Clone(),
	}
}

// Spawn hands a task to the App's executor.
func (a *App) Spawn(task executor.Task[*App], deferToNextCycle bool) {
	a.exec.Spawn(task, deferToNextCycle)
}

// Frame runs once per UI frame before drawing: it applies every finished
// task, lets the preview perform a requested pause, and updates the render
// jobs. Errors go to the error slot.
func (a *App) Frame() {
	executor.Drive(a.exec, a, a.HandleError)

	if a.preview != nil {
		if st := a.preview.Poll(); st.Status == pipeline.StatusError {
			kind := KindPlayback
			var be *graph.BuildError
			if errors.As(st.Err, &be) {
				kind = KindCreatePipeline
			}
			if err := a.RemovePipeline(); err != nil {
				a.log.Warn().Err(err).Msg("removing failed preview")
			}
			a.HandleError(wrap(kind, st.Err))
		}
	}

	now := a.clock()
	for _, job := range a.jobs {
		job.Update(now)
		if err, ok := job.TakeError(); ok {
			a.HandleError(wrap(KindRender, err))
		}
	}

	a.undo.Feed(now, a.effect)
}

// Now returns the App clock in seconds.
func (a *App) Now() float64 { return a.clock() }

// Config returns the configuration with the current effect settings, ready
// to be saved.
func (a *App) Config() *config.Config {
	a.cfg.Effect = a.effect.Clone()
	return a.cfg
}

// Close stops every graph and drops pending tasks.
func (a *App) Close() {
	a.stopWatching()
	if err := a.RemovePipeline(); err != nil {
		a.log.Warn().Err(err).Msg("stopping preview")
	}
	for _, job := range a.jobs {
		if err := job.Close(); err != nil {
			a.log.Warn().Err(err).Str("job", job.ID).Msg("stopping render job")
		}
	}
	a.exec.Close()
}

// =============================================================================
// PREVIEW
// =============================================================================

// Preview returns the loaded preview, or nil.
func (a *App) Preview() *pipeline.Preview { return a.preview }

// LoadVideo replaces the preview with one for path.
func (a *App) LoadVideo(path string) error {
	if err := a.RemovePipeline(); err != nil {
		return wrap(KindLoadVideo, err)
	}
	if a.builder == nil {
		return wrap(KindLoadVideo, errors.New("no media backend"))
	}
	ui := a.cfg.UI
	p, err := pipeline.NewPreview(pipeline.Options{
		Builder:     a.builder,
		Repaint:     a.repaint,
		Source:      path,
		Effect:      a.effect,
		FrameWidth:  ui.PreviewWidth,
		FrameHeight: ui.PreviewHeight,
		MaxFPS:      float64(ui.PreviewFPS),
		ScaleHint:   ui.PreviewScale,
		Logger:      a.graphLog,
	})
	if err != nil {
		return wrap(KindLoadVideo, err)
	}
	a.preview = p
	a.log.Info().Str("source", path).Msg("video loaded")
	return nil
}

// RemovePipeline stops and drops the preview.
func (a *App) RemovePipeline() error {
	if a.preview == nil {
		return nil
	}
	p := a.preview
	a.preview = nil
	return p.Close()
}

// TogglePlaying plays or pauses the preview.
func (a *App) TogglePlaying() error {
	if a.preview == nil {
		return nil
	}
	return wrap(KindPlayback, a.preview.TogglePlaying())
}

// Seek moves the preview to pos.
func (a *App) Seek(pos time.Duration) error {
	if a.preview == nil {
		return nil
	}
	return wrap(KindPlayback, a.preview.Seek(max(0, pos)))
}

// SeekBy moves the preview relative to its position, staying within the
// source.
func (a *App) SeekBy(delta time.Duration) error {
	if a.preview == nil {
		return nil
	}
	pos, _ := a.preview.Position()
	target := max(0, pos+delta)
	if dur, ok := a.preview.Duration(); ok && target > dur {
		target = dur
	}
	return a.Seek(target)
}

// =============================================================================
// EFFECT
// =============================================================================

// Effect returns the current effect settings.
func (a *App) Effect() effect.Settings { return a.effect }

// SetEffect replaces the effect settings and updates the preview.
func (a *App) SetEffect(s effect.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	a.effect = s.Clone()
	if a.preview != nil {
		if err := a.preview.UpdateEffect(a.effect); err != nil {
			return wrap(KindPlayback, err)
		}
	}
	return nil
}

// AdjustNoise changes the composite noise level by delta.
func (a *App) AdjustNoise(delta float64) error {
	return a.SetEffect(a.effect.WithNoiseLevel(a.effect.NoiseLevel() + delta))
}

// CanUndo and CanRedo report whether Undo and Redo would do anything.
func (a *App) CanUndo() bool { return a.undo.HasUndo(a.effect) }

func (a *App) CanRedo() bool { return a.undo.HasRedo(a.effect) }

// Undo restores the previous effect settings.
func (a *App) Undo() error {
	if s, ok := a.undo.Undo(a.effect); ok {
		return a.SetEffect(s)
	}
	return nil
}

// Redo reapplies undone effect settings.
func (a *App) Redo() error {
	if s, ok := a.undo.Redo(a.effect); ok {
		return a.SetEffect(s)
	}
	return nil
}

// =============================================================================
// RENDER JOBS
// =============================================================================

// Jobs returns the render jobs, oldest first.
func (a *App) Jobs() []*render.Job { return a.jobs }

// Job returns the job with id.
func (a *App) Job(id string) *render.Job {
	for _, j := range a.jobs {
		if j.ID == id {
			return j
		}
	}
	return nil
}

func (a *App) stillSource() (graph.Info, bool) {
	if a.preview == nil {
		return graph.Info{}, false
	}
	meta := a.preview.Metadata()
	return meta.Info, meta.Known && meta.Info.IsStillImage
}

// RenderSettings returns the export settings for output using the
// configured codec and the current effect.
func (a *App) RenderSettings(output string) render.Settings {
	rc := a.cfg.Render
	s := render.Settings{
		OutputPath: render.WithDefaultExtension(output, rc.Codec.Kind),
		Codec:      rc.Codec,
		Interlace:  render.InterlaceFor(a.effect.UseField, rc.Interlaced),
		Effect:     a.effect.Clone(),
	}
	if _, still := a.stillSource(); still {
		s.Duration = time.Duration(rc.StillDurationSecs * float64(time.Second))
	}
	return s
}

// StartRender starts exporting the loaded video. Still frame exports are
// taken at the preview position.
func (a *App) StartRender(s render.Settings) (*render.Job, error) {
	if a.preview == nil {
		return nil, wrap(KindCreateRenderJob, errNoVideo)
	}
	opts := render.Options{
		Builder:  a.builder,
		Repaint:  a.repaint,
		Deferrer: a.exec.Deferrer(),
		Clock:    a.clock,
		Source:   a.preview.Source(),
		Settings: s,
		Logger:   a.graphLog,
	}
	if info, still := a.stillSource(); still {
		opts.FramerateHint = info.Framerate
	}
	if s.Codec.Kind == render.CodecPNG {
		opts.StartAt, _ = a.preview.Position()
	}

	job, err := render.NewJob(opts)
	if err != nil {
		return nil, wrap(KindCreateRenderJob, err)
	}
	a.jobs = append(a.jobs, job)
	return job, nil
}

// SaveImage renders the preview's current frame to a PNG file.
func (a *App) SaveImage(path string) (*render.Job, error) {
	if filepath.Ext(path) == "" {
		path += ".png"
	}
	return a.StartRender(render.Settings{
		OutputPath: path,
		Codec:      render.Codec{Kind: render.CodecPNG},
		Interlace:  render.Progressive,
		Effect:     a.effect.Clone(),
	})
}

// ToggleJobPaused pauses or resumes a job.
func (a *App) ToggleJobPaused(id string) error {
	job := a.Job(id)
	if job == nil {
		return nil
	}
	return wrap(KindRender, job.TogglePaused())
}

// DismissJob stops a job if it is still running and forgets it.
func (a *App) DismissJob(id string) bool {
	i := slices.IndexFunc(a.jobs, func(j *render.Job) bool { return j.ID == id })
	if i < 0 {
		return false
	}
	if err := a.jobs[i].Close(); err != nil {
		a.log.Warn().Err(err).Str("job", id).Msg("stopping dismissed job")
	}
	a.jobs = slices.Delete(a.jobs, i, i+1)
	return true
}

// =============================================================================
// ERRORS
// =============================================================================

// HandleError records err in the error slot, replacing any earlier error.
// Cancelled dialogs are ignored.
func (a *App) HandleError(err error) {
	if err == nil || errors.Is(err, ErrUserCancelled) {
		return
	}
	a.log.Warn().Err(err).Msg("operation failed")
	a.lastErr = err
}

// LastError returns the error to show, or nil.
func (a *App) LastError() error { return a.lastErr }

// DismissError clears the error slot.
func (a *App) DismissError() { a.lastErr = nil }

// =============================================================================
// HELPERS
// =============================================================================

// suggestName returns "<stem>_ntsc.<ext>" for source.
func suggestName(source, ext string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s_ntsc.%s", stem, ext)
}

func (a *App) outputDir() string {
	if a.cfg.Render.OutputDir != "" {
		return a.cfg.Render.OutputDir
	}
	if a.preview != nil {
		return filepath.Dir(a.preview.Source())
	}
	return ""
}
