// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ntsc-tui/internal/config"
	"github.com/jeranaias/ntsc-tui/internal/effect"
	"github.com/jeranaias/ntsc-tui/internal/executor"
	"github.com/jeranaias/ntsc-tui/internal/graph"
	"github.com/jeranaias/ntsc-tui/internal/graph/graphtest"
	"github.com/jeranaias/ntsc-tui/internal/pipeline"
	"github.com/jeranaias/ntsc-tui/internal/preset"
	"github.com/jeranaias/ntsc-tui/internal/render"
	"github.com/jeranaias/ntsc-tui/internal/repaint"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeDialogs struct {
	reqs    []FileRequest
	futures []*executor.Future[string]
}

func (d *fakeDialogs) PickFile(req FileRequest) *executor.Future[string] {
	f := executor.NewFuture[string]()
	d.reqs = append(d.reqs, req)
	d.futures = append(d.futures, f)
	return f
}

func (d *fakeDialogs) last() (FileRequest, *executor.Future[string]) {
	n := len(d.reqs) - 1
	return d.reqs[n], d.futures[n]
}

type fakeClipboard struct {
	text string
	err  error
}

func (c *fakeClipboard) ReadAll() (string, error) { return c.text, c.err }

func (c *fakeClipboard) WriteAll(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

type harness struct {
	app     *App
	builder *graphtest.Builder
	dialogs *fakeDialogs
	clip    *fakeClipboard
	rec     *repaint.Recorder
	now     float64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		builder: &graphtest.Builder{},
		dialogs: &fakeDialogs{},
		clip:    &fakeClipboard{},
		rec:     &repaint.Recorder{},
	}
	h.app = New(Options{
		Builder:   h.builder,
		Repaint:   h.rec,
		Dialogs:   h.dialogs,
		Clipboard: h.clip,
		Config:    config.Default(),
		Clock:     func() float64 { return h.now },
		Logger:    zerolog.Nop(),
	})
	t.Cleanup(h.app.Close)
	return h
}

var clipInfo = graph.Info{Width: 720, Height: 480, Duration: 10 * time.Second, Framerate: graph.Fraction{Num: 30000, Den: 1001}}

// loadClip loads a video and brings its preview to Loaded.
func (h *harness) loadClip(t *testing.T, info graph.Info) *graphtest.Graph {
	t.Helper()
	require.NoError(t, h.app.LoadVideo("/videos/clip.mp4"))
	g := h.builder.Last()
	require.NoError(t, g.Ready(info, nil))
	g.EmitStateChange(graph.StateReady, graph.StatePaused)
	h.app.Frame()
	require.Equal(t, pipeline.StatusLoaded, h.app.Preview().State().Status)
	return g
}

// =============================================================================
// DIALOG TASKS
// =============================================================================

func TestOpenVideoDialog_LoadsWhenResolved(t *testing.T) {
	h := newHarness(t)
	h.app.OpenVideoDialog()
	h.app.Frame()
	assert.Nil(t, h.app.Preview(), "nothing happens before the dialog returns")
	assert.Equal(t, 1, h.app.exec.Pending())

	req, fut := h.dialogs.last()
	assert.Contains(t, req.Extensions, "mp4")
	h.rec.Reset()
	fut.Resolve("/videos/clip.mp4")
	assert.Equal(t, 1, h.rec.Count(), "resolving wakes the UI")

	h.app.Frame()
	require.NotNil(t, h.app.Preview())
	assert.Equal(t, "/videos/clip.mp4", h.app.Preview().Source())
	assert.Zero(t, h.app.exec.Pending())
}

func TestOpenVideoDialog_CancelIsSilent(t *testing.T) {
	h := newHarness(t)
	h.app.OpenVideoDialog()
	_, fut := h.dialogs.last()
	fut.Resolve("")
	h.app.Frame()

	assert.Nil(t, h.app.Preview())
	assert.NoError(t, h.app.LastError())
}

func TestNoDialogs_CompletesSynchronously(t *testing.T) {
	h := newHarness(t)
	h.app.dialogs = NoDialogs{}
	h.app.OpenVideoDialog()
	assert.Zero(t, h.app.exec.Pending())
	assert.Equal(t, 1, h.app.exec.Queued(), "the action is visible without a tick")

	h.app.Frame()
	assert.Zero(t, h.app.exec.Queued())
	assert.NoError(t, h.app.LastError())
}

// =============================================================================
// PREVIEW
// =============================================================================

func TestLoadVideo_ReplacesPreview(t *testing.T) {
	h := newHarness(t)
	first := h.loadClip(t, clipInfo)
	second := h.loadClip(t, clipInfo)

	assert.Equal(t, 1, first.Count(graph.StateNull), "old preview stopped")
	assert.Zero(t, second.Count(graph.StateNull))
	assert.Equal(t, 2, h.builder.Built())
}

func TestLoadVideo_SynchronousFailure(t *testing.T) {
	h := newHarness(t)
	h.builder.Err = &graph.BuildError{Stage: "source", Err: graph.ErrNoSource}

	err := h.app.LoadVideo("/missing.mp4")
	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindLoadVideo, appErr.Kind)
	assert.ErrorIs(t, err, graph.ErrNoSource)
	assert.True(t, strings.HasPrefix(err.Error(), "Error loading video: "))
}

func TestFrame_PreviewBuildErrorRemovesPipeline(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.app.LoadVideo("/videos/clip.mp4"))
	g := h.builder.Last()
	buildErr := &graph.BuildError{Stage: "probe", Err: errors.New("moov atom not found")}
	require.Error(t, g.Ready(clipInfo, buildErr))

	h.app.Frame()
	assert.Nil(t, h.app.Preview())
	assert.Equal(t, 1, g.Count(graph.StateNull))

	var appErr *Error
	require.ErrorAs(t, h.app.LastError(), &appErr)
	assert.Equal(t, KindCreatePipeline, appErr.Kind)
	assert.ErrorIs(t, appErr, buildErr)
}

func TestFrame_PreviewRuntimeError(t *testing.T) {
	h := newHarness(t)
	g := h.loadClip(t, clipInfo)
	g.EmitError(&graph.RuntimeError{Source: "ffmpeg", Err: errors.New("decode failed")})

	h.app.Frame()
	assert.Nil(t, h.app.Preview())
	var appErr *Error
	require.ErrorAs(t, h.app.LastError(), &appErr)
	assert.Equal(t, KindPlayback, appErr.Kind)

	h.app.DismissError()
	assert.NoError(t, h.app.LastError())
}

func TestSeekBy_Clamps(t *testing.T) {
	h := newHarness(t)
	g := h.loadClip(t, clipInfo)
	g.SetPosition(8 * time.Second)

	require.NoError(t, h.app.SeekBy(5*time.Second))
	g.SetPosition(1 * time.Second)
	require.NoError(t, h.app.SeekBy(-5*time.Second))
	assert.Equal(t, []time.Duration{10 * time.Second, 0}, g.Seeks())
}

func TestTogglePlaying_WithoutVideo(t *testing.T) {
	h := newHarness(t)
	assert.NoError(t, h.app.TogglePlaying())
	assert.NoError(t, h.app.Seek(time.Second))
}

// =============================================================================
// EFFECT
// =============================================================================

func TestSetEffect_UpdatesPreview(t *testing.T) {
	h := newHarness(t)
	g := h.loadClip(t, clipInfo)

	require.NoError(t, h.app.SetEffect(h.app.Effect().WithNoiseLevel(0.45)))
	require.NoError(t, h.app.AdjustNoise(0.05))
	assert.InDelta(t, 0.5, h.app.Effect().NoiseLevel(), 1e-9)
	chain := strings.Join(g.Spec().VideoFilters, ",")
	assert.Contains(t, chain, "noise=")
	assert.Contains(t, chain, "gblur=")

	bad := h.app.Effect()
	bad.UseField = "sideways"
	assert.Error(t, h.app.SetEffect(bad))
	assert.InDelta(t, 0.5, h.app.Effect().NoiseLevel(), 1e-9, "rejected settings are not applied")
}

func TestUndoRedo_ThroughFrames(t *testing.T) {
	h := newHarness(t)
	original := h.app.Effect()
	h.app.Frame()
	assert.False(t, h.app.CanUndo())

	require.NoError(t, h.app.SetEffect(smear(0.9)))
	h.now = 1
	h.app.Frame()
	h.now = 2.5
	h.app.Frame()
	require.True(t, h.app.CanUndo())

	require.NoError(t, h.app.Undo())
	assert.Equal(t, original, h.app.Effect())
	require.True(t, h.app.CanRedo())
	require.NoError(t, h.app.Redo())
	assert.Equal(t, 0.9, h.app.Effect().LumaSmear)
}

func TestConfig_CarriesEffect(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.app.SetEffect(smear(0.33)))
	assert.Equal(t, 0.33, h.app.Config().Effect.LumaSmear)
}

// =============================================================================
// RENDER JOBS
// =============================================================================

func TestStartRender_NeedsVideo(t *testing.T) {
	h := newHarness(t)
	_, err := h.app.StartRender(h.app.RenderSettings("out"))
	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindCreateRenderJob, appErr.Kind)

	h.app.RenderDialog()
	assert.Empty(t, h.dialogs.reqs)
	assert.ErrorIs(t, h.app.LastError(), errNoVideo)
}

func TestRenderDialog_StartsJob(t *testing.T) {
	h := newHarness(t)
	h.loadClip(t, clipInfo)

	h.app.RenderDialog()
	req, fut := h.dialogs.last()
	assert.True(t, req.Save)
	assert.Equal(t, "/videos", req.Dir)
	assert.Equal(t, "clip_ntsc.mp4", req.Name)

	fut.Resolve("/out/clip_ntsc")
	h.app.Frame()
	require.Len(t, h.app.Jobs(), 1)
	job := h.app.Jobs()[0]
	assert.Equal(t, "/out/clip_ntsc.mp4", job.Settings.OutputPath)
	assert.Equal(t, "/videos/clip.mp4", job.Source)
	assert.Zero(t, job.Settings.Duration, "videos render whole")

	jg := h.builder.Last()
	require.NoError(t, jg.Ready(clipInfo, nil))
	h.app.Frame()
	assert.Equal(t, graph.StatePlaying, jg.CurrentState(), "the job starts on the next frame")
}

func TestRenderSettings_StillImage(t *testing.T) {
	h := newHarness(t)
	still := graph.Info{Width: 640, Height: 480, IsStillImage: true, Framerate: graph.Fraction{Num: 30, Den: 1}}
	h.loadClip(t, still)

	s := h.app.RenderSettings("/out/frame.mkv")
	assert.Equal(t, 5*time.Second, s.Duration)

	_, err := h.app.StartRender(s)
	require.NoError(t, err)
	assert.Equal(t, still.Framerate, h.builder.Last().Request().FramerateHint)
}

func TestSaveImage_UsesPreviewPosition(t *testing.T) {
	h := newHarness(t)
	g := h.loadClip(t, clipInfo)
	g.SetPosition(4 * time.Second)

	h.app.SaveImageDialog()
	req, fut := h.dialogs.last()
	assert.Equal(t, "clip_ntsc.png", req.Name)
	fut.Resolve("/out/still")
	h.app.Frame()

	require.Len(t, h.app.Jobs(), 1)
	job := h.app.Jobs()[0]
	assert.Equal(t, render.CodecPNG, job.Settings.Codec.Kind)
	assert.Equal(t, "/out/still.png", job.Settings.OutputPath)

	jg := h.builder.Last()
	require.NoError(t, jg.Ready(clipInfo, nil))
	h.app.Frame()
	assert.Equal(t, []time.Duration{4 * time.Second}, jg.Seeks())
}

func TestFrame_ReportsJobErrorOnce(t *testing.T) {
	h := newHarness(t)
	h.loadClip(t, clipInfo)
	job, err := h.app.StartRender(h.app.RenderSettings("/out/a.mp4"))
	require.NoError(t, err)
	jg := h.builder.Last()

	jg.EmitError(&graph.RuntimeError{Source: "ffmpeg", Err: errors.New("no space left on device")})
	h.app.Frame()
	var appErr *Error
	require.ErrorAs(t, h.app.LastError(), &appErr)
	assert.Equal(t, KindRender, appErr.Kind)
	assert.Equal(t, 1, jg.Count(graph.StateNull), "failed job torn down")

	h.app.DismissError()
	h.app.Frame()
	assert.NoError(t, h.app.LastError(), "reported once")
	assert.Equal(t, render.StateError, job.State().Kind, "the job stays listed")
}

func TestToggleJobPaused(t *testing.T) {
	h := newHarness(t)
	h.loadClip(t, clipInfo)
	job, err := h.app.StartRender(h.app.RenderSettings("/out/a.mp4"))
	require.NoError(t, err)
	jg := h.builder.Last()

	require.NoError(t, jg.Ready(clipInfo, nil))
	h.app.Frame()
	jg.EmitStateChange(graph.StateReady, graph.StatePaused)
	jg.EmitStateChange(graph.StatePaused, graph.StatePlaying)
	require.Equal(t, render.StateRendering, job.State().Kind)

	require.NoError(t, h.app.ToggleJobPaused(job.ID))
	assert.Equal(t, graph.StatePaused, jg.CurrentState())
	jg.EmitStateChange(graph.StatePlaying, graph.StatePaused)
	assert.Equal(t, render.StatePaused, job.State().Kind)

	require.NoError(t, h.app.ToggleJobPaused(job.ID))
	assert.Equal(t, graph.StatePlaying, jg.CurrentState())

	assert.NoError(t, h.app.ToggleJobPaused("no-such-job"))
}

func TestDismissJob(t *testing.T) {
	h := newHarness(t)
	h.loadClip(t, clipInfo)
	job, err := h.app.StartRender(h.app.RenderSettings("/out/a.mp4"))
	require.NoError(t, err)
	jg := h.builder.Last()

	assert.Same(t, job, h.app.Job(job.ID))
	assert.True(t, h.app.DismissJob(job.ID))
	assert.Empty(t, h.app.Jobs())
	assert.Equal(t, 1, jg.Count(graph.StateNull))
	assert.False(t, h.app.DismissJob(job.ID))
}

// =============================================================================
// PRESETS
// =============================================================================

func TestLoadPreset_Errors(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()

	var appErr *Error
	err := h.app.LoadPreset(filepath.Join(dir, "missing.json"))
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindPresetRead, appErr.Kind)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{nope"), 0644))
	err = h.app.LoadPreset(bad)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindPresetParse, appErr.Kind)
}

func TestSaveAndLoadPreset(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "look.json")
	require.NoError(t, h.app.SetEffect(smear(0.42)))
	require.NoError(t, h.app.SavePreset(path))

	require.NoError(t, h.app.SetEffect(effect.Default()))
	require.NoError(t, h.app.LoadPreset(path))
	assert.Equal(t, 0.42, h.app.Effect().LumaSmear)
	assert.Equal(t, path, h.app.Config().UI.LastPreset)
	assert.NotEmpty(t, h.app.WatchedPreset())
}

func TestPresetFileChangeReloads(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "look.json")
	require.NoError(t, preset.Save(path, smear(0.1)))
	require.NoError(t, h.app.LoadPreset(path))

	require.NoError(t, preset.Save(path, smear(0.8)))
	require.Eventually(t, func() bool { return h.app.exec.Pending() > 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0.1, h.app.Effect().LumaSmear, "reload waits for the frame")

	h.app.Frame()
	assert.Equal(t, 0.8, h.app.Effect().LumaSmear)
}

func TestCopyPasteSettings(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.app.SetEffect(smear(0.6)))
	require.NoError(t, h.app.CopySettings())
	assert.Contains(t, h.clip.text, `"luma_smear": 0.6`)

	require.NoError(t, h.app.SetEffect(effect.Default()))
	require.NoError(t, h.app.PasteSettings())
	assert.Equal(t, 0.6, h.app.Effect().LumaSmear)

	h.clip.text = "not json"
	var appErr *Error
	require.ErrorAs(t, h.app.PasteSettings(), &appErr)
	assert.Equal(t, KindPresetParse, appErr.Kind)

	h.clip.err = errors.New("no display")
	require.ErrorAs(t, h.app.CopySettings(), &appErr)
	assert.Equal(t, KindClipboard, appErr.Kind)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestHandleError(t *testing.T) {
	h := newHarness(t)
	h.app.HandleError(nil)
	h.app.HandleError(ErrUserCancelled)
	h.app.HandleError(wrap(KindPresetRead, ErrUserCancelled))
	assert.NoError(t, h.app.LastError())

	h.app.HandleError(errors.New("first"))
	h.app.HandleError(errors.New("second"))
	assert.EqualError(t, h.app.LastError(), "second", "the slot keeps the most recent error")
}

func TestActionErrorsGoToSlot(t *testing.T) {
	h := newHarness(t)
	h.app.Spawn(executor.Ready(func(*App) error { return errors.New("boom") }), false)
	h.app.Frame()
	assert.EqualError(t, h.app.LastError(), "boom")
}
