// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jeranaias/ntsc-tui/internal/effect"
	"github.com/jeranaias/ntsc-tui/internal/executor"
	"github.com/jeranaias/ntsc-tui/internal/graph"
	"github.com/jeranaias/ntsc-tui/internal/graph/graphtest"
	"github.com/jeranaias/ntsc-tui/internal/repaint"
)

type harness struct {
	job   *Job
	graph *graphtest.Graph
	exec  *executor.Executor[struct{}]
	rec   *repaint.Recorder
	now   float64
	errs  []error
}

func (h *harness) drive() {
	executor.Drive(h.exec, struct{}{}, func(err error) { h.errs = append(h.errs, err) })
}

func newHarness(t *testing.T, settings Settings) *harness {
	t.Helper()
	h := &harness{rec: &repaint.Recorder{}}
	h.exec = executor.New[struct{}](h.rec)
	b := &graphtest.Builder{}

	job, err := NewJob(Options{
		Builder:  b,
		Repaint:  h.rec,
		Deferrer: h.exec.Deferrer(),
		Clock:    func() float64 { return h.now },
		Source:   "clip.mp4",
		Settings: settings,
		StartAt:  3 * time.Second,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	h.job = job
	h.graph = b.Last()
	return h
}

func h264Settings() Settings {
	return Settings{
		OutputPath: "out.mp4",
		Codec:      DefaultCodec(),
		Interlace:  Progressive,
		Effect:     effect.Default(),
	}
}

var clipInfo = graph.Info{HasAudio: true, Width: 720, Height: 480, Duration: 10 * time.Second}

// startRendering builds the graph, runs the deferred start and reports the
// graph as playing.
func (h *harness) startRendering(t *testing.T) {
	t.Helper()
	require.NoError(t, h.graph.Ready(clipInfo, nil))
	h.drive()
	require.Equal(t, graph.StatePlaying, h.graph.CurrentState())
	h.graph.EmitStateChange(graph.StateReady, graph.StatePaused)
	h.graph.EmitStateChange(graph.StatePaused, graph.StatePlaying)
	require.Equal(t, StateRendering, h.job.State().Kind)
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestCanTransition(t *testing.T) {
	allowed := map[[2]StateKind]bool{
		{StateWaiting, StateRendering}:   true,
		{StateWaiting, StatePaused}:      true,
		{StateWaiting, StateError}:       true,
		{StateRendering, StatePaused}:    true,
		{StatePaused, StateRendering}:    true,
		{StateRendering, StateComplete}:  true,
		{StatePaused, StateComplete}:     true,
		{StateRendering, StateError}:     true,
		{StatePaused, StateError}:        true,
	}
	kinds := []StateKind{StateWaiting, StateRendering, StatePaused, StateComplete, StateError}
	for _, from := range kinds {
		for _, to := range kinds {
			assert.Equal(t, allowed[[2]StateKind{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestProperty_TerminalStatesAbsorb(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := &stateCell{}
		terminal := false
		kinds := rapid.SliceOfN(rapid.IntRange(0, 4), 1, 30).Draw(t, "kinds")
		for _, k := range kinds {
			changed := c.set(JobState{Kind: StateKind(k)})
			if terminal && changed {
				t.Fatalf("left terminal state for %s", StateKind(k))
			}
			terminal = c.get().Terminal()
		}
	})
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestJob_StartsOnFrameAfterBuild(t *testing.T) {
	h := newHarness(t, h264Settings())
	assert.Equal(t, StateWaiting, h.job.State().Kind)
	assert.NotEmpty(t, h.job.ID)
	assert.Equal(t, []graph.State{graph.StatePaused}, h.graph.Calls())
	assert.Equal(t, time.Duration(0), h.graph.Request().DurationHint)

	require.NoError(t, h.graph.Ready(clipInfo, nil))
	assert.Equal(t, []graph.State{graph.StatePaused}, h.graph.Calls(), "onReady does not touch the graph")

	h.drive()
	assert.Equal(t, []graph.State{graph.StatePaused, graph.StatePlaying}, h.graph.Calls())
	assert.Empty(t, h.graph.Seeks())

	spec := h.graph.Spec()
	args := strings.Join(spec.Args(0, false), " ")
	assert.Contains(t, args, "-c:v libx264")
	assert.Contains(t, args, "-c:a aac")
	assert.Contains(t, args, "-f mp4")
	assert.True(t, strings.HasSuffix(args, "out.mp4"))
}

func TestJob_StateMirrorsGraph(t *testing.T) {
	h := newHarness(t, h264Settings())
	h.startRendering(t)

	h.graph.EmitStateChange(graph.StatePlaying, graph.StatePaused)
	assert.Equal(t, StatePaused, h.job.State().Kind)

	// Paused to Waiting is not a legal transition.
	h.graph.EmitStateChange(graph.StatePaused, graph.StateReady)
	assert.Equal(t, StatePaused, h.job.State().Kind)

	h.graph.EmitStateChange(graph.StatePaused, graph.StatePlaying)
	assert.Equal(t, StateRendering, h.job.State().Kind)
}

func TestJob_DuplicateEOSStopsOnce(t *testing.T) {
	h := newHarness(t, h264Settings())
	h.startRendering(t)

	h.now = 42
	h.graph.EmitEOS()
	h.now = 43
	h.graph.EmitEOS()
	h.graph.EmitEOS()

	assert.Equal(t, StateRendering, h.job.State().Kind, "completion waits for the next frame")
	assert.Zero(t, h.graph.Count(graph.StateNull))

	h.drive()
	assert.Equal(t, 1, h.graph.Count(graph.StateNull))

	st := h.job.State()
	require.Equal(t, StateComplete, st.Kind)
	assert.Equal(t, 42.0, st.EndTime)

	// Teardown after completion does not stop the graph again.
	h.job.Update(44)
	h.drive()
	assert.Equal(t, 1, h.graph.Count(graph.StateNull))
	assert.Equal(t, 1.0, h.job.Progress())
	assert.Empty(t, h.errs)
}

func TestJob_EOSEndTimeSurvivesStopMessages(t *testing.T) {
	h := newHarness(t, h264Settings())
	h.graph.StepMessages = true

	require.NoError(t, h.graph.Ready(clipInfo, nil))
	h.drive()
	require.Equal(t, StateRendering, h.job.State().Kind, "start steps through to playing")

	h.now = 42
	h.graph.EmitEOS()
	h.now = 43.5
	h.rec.Reset()
	h.drive()

	st := h.job.State()
	require.Equal(t, StateComplete, st.Kind)
	assert.Equal(t, 42.0, st.EndTime, "end time is taken at end of stream, not at teardown")
	assert.Equal(t, 1, h.graph.Count(graph.StateNull))
	assert.Equal(t, graph.StateNull, h.graph.CurrentState())
	assert.Zero(t, h.rec.Count(), "stop messages after completion change nothing")
	assert.Empty(t, h.errs)
}

func TestJob_DuplicateErrorKeepsFirst(t *testing.T) {
	h := newHarness(t, h264Settings())
	h.startRendering(t)
	h.rec.Reset()

	first := &graph.RuntimeError{Source: "ffmpeg", Err: errors.New("disk full")}
	h.graph.EmitError(first)
	require.Equal(t, 1, h.rec.Count())

	h.graph.EmitError(errors.New("broken pipe"))
	st := h.job.State()
	require.Equal(t, StateError, st.Kind)
	assert.Equal(t, first.Error(), st.Err.Error())
	assert.Equal(t, 1, h.rec.Count(), "no second repaint")

	// End of stream after an error never completes the job.
	h.graph.EmitEOS()
	h.drive()
	assert.Equal(t, StateError, h.job.State().Kind)
}

func TestJob_BuildErrorLatchesAndTearsDown(t *testing.T) {
	h := newHarness(t, h264Settings())
	buildErr := &graph.BuildError{Stage: "video sink", Err: errors.New("no encoder")}
	require.Error(t, h.graph.Ready(clipInfo, buildErr))

	st := h.job.State()
	require.Equal(t, StateError, st.Kind)
	assert.ErrorIs(t, st.Err, buildErr)

	err, ok := h.job.TakeError()
	require.True(t, ok)
	assert.ErrorIs(t, err, buildErr)
	_, ok = h.job.TakeError()
	assert.False(t, ok, "reported once")

	h.job.Update(1)
	h.job.Update(2)
	assert.Equal(t, 1, h.graph.Count(graph.StateNull))
}

func TestJob_ProgressAndEstimate(t *testing.T) {
	h := newHarness(t, h264Settings())

	h.job.Update(0)
	assert.Zero(t, h.job.Progress())
	assert.Equal(t, 1, h.job.Estimator().Len(), "waiting jobs are sampled")
	_, ok := h.job.TimeRemaining(0)
	assert.False(t, ok)

	h.startRendering(t)
	h.graph.SetDuration(10 * time.Second)
	for i := 1; i <= 4; i++ {
		h.graph.SetPosition(time.Duration(i) * time.Second)
		h.job.Update(float64(i))
	}
	assert.InDelta(t, 0.4, h.job.Progress(), 1e-9)

	left, ok := h.job.TimeRemaining(4)
	require.True(t, ok)
	assert.Equal(t, 6.0, left)

	// Paused jobs show the estimate but are not sampled.
	h.graph.EmitStateChange(graph.StatePlaying, graph.StatePaused)
	n := h.job.Estimator().Len()
	h.job.Update(6)
	assert.Equal(t, n, h.job.Estimator().Len())
	_, ok = h.job.TimeRemaining(6)
	assert.True(t, ok)
}

func TestJob_ElapsedFromFirstSample(t *testing.T) {
	h := newHarness(t, h264Settings())
	h.job.Update(5)
	h.startRendering(t)

	h.now = 12.5
	h.graph.EmitEOS()
	h.drive()
	assert.Equal(t, 7500*time.Millisecond, h.job.Elapsed())
}

func TestJob_TogglePaused(t *testing.T) {
	h := newHarness(t, h264Settings())
	h.startRendering(t)

	require.NoError(t, h.job.TogglePaused())
	assert.Equal(t, graph.StatePaused, h.graph.CurrentState())
	h.graph.EmitStateChange(graph.StatePlaying, graph.StatePaused)

	require.NoError(t, h.job.TogglePaused())
	assert.Equal(t, graph.StatePlaying, h.graph.CurrentState())
}

func TestJob_StillFrameSeeksToPreviewPosition(t *testing.T) {
	s := h264Settings()
	s.Codec.Kind = CodecPNG
	s.OutputPath = "frame.png"
	s.Duration = 5 * time.Second
	h := newHarness(t, s)
	assert.Zero(t, h.graph.Request().DurationHint, "still frames have no duration")

	require.NoError(t, h.graph.Ready(clipInfo, nil))
	h.drive()
	assert.Equal(t, []time.Duration{3 * time.Second}, h.graph.Seeks())
	assert.Equal(t, graph.StatePlaying, h.graph.CurrentState())

	spec := h.graph.Spec()
	assert.True(t, spec.NoAudio)
	assert.Contains(t, strings.Join(spec.VideoArgs, " "), "-frames:v 1")
}

func TestJob_StartFailureLatchesError(t *testing.T) {
	h := newHarness(t, h264Settings())
	require.NoError(t, h.graph.Ready(clipInfo, nil))
	h.graph.SetStateErr = errors.New("no such encoder")

	h.drive()
	st := h.job.State()
	require.Equal(t, StateError, st.Kind)
	assert.Contains(t, st.Err.Error(), "starting render")
	assert.Empty(t, h.errs)
}

func TestNewJob_RejectsInvalidSettings(t *testing.T) {
	exec := executor.New[struct{}](repaint.Nop)
	b := &graphtest.Builder{}

	s := h264Settings()
	s.OutputPath = ""
	_, err := NewJob(Options{Builder: b, Deferrer: exec.Deferrer(), Settings: s})
	require.Error(t, err)
	assert.Zero(t, b.Built())
}
