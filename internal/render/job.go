// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/ntsc-tui/internal/executor"
	"github.com/jeranaias/ntsc-tui/internal/graph"
	"github.com/jeranaias/ntsc-tui/internal/repaint"
)

// =============================================================================
// JOB STATE
// =============================================================================

// StateKind is the tag of a JobState.
type StateKind int

const (
	StateWaiting StateKind = iota
	StateRendering
	StatePaused
	StateComplete
	StateError
)

func (k StateKind) String() string {
	switch k {
	case StateWaiting:
		return "waiting"
	case StateRendering:
		return "rendering"
	case StatePaused:
		return "paused"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(k))
	}
}

// JobState is the state of a render job. EndTime is set for Complete and
// Err for Error.
type JobState struct {
	Kind    StateKind
	EndTime float64
	Err     error
}

// Terminal reports whether s is Complete or Error. Terminal states are
// never left.
func (s JobState) Terminal() bool {
	return s.Kind == StateComplete || s.Kind == StateError
}

// CanTransition reports whether a job may move from one state to another.
func CanTransition(from, to StateKind) bool {
	switch from {
	case StateWaiting:
		return to == StateRendering || to == StatePaused || to == StateError
	case StateRendering:
		return to == StatePaused || to == StateComplete || to == StateError
	case StatePaused:
		return to == StateRendering || to == StateComplete || to == StateError
	default:
		return false
	}
}

// stateCell is shared with graph goroutines.
type stateCell struct {
	mu    sync.Mutex
	state JobState
}

func (c *stateCell) get() JobState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// set applies next if the transition is allowed and reports whether it was.
func (c *stateCell) set(next JobState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !CanTransition(c.state.Kind, next.Kind) {
		return false
	}
	c.state = next
	return true
}

// =============================================================================
// JOB
// =============================================================================

// Clock returns the current time in seconds.
type Clock func() float64

// MonotonicClock returns a clock counting from now.
func MonotonicClock() Clock {
	start := time.Now()
	return func() float64 { return time.Since(start).Seconds() }
}

// Options configures a job.
type Options struct {
	Builder  graph.Builder
	Repaint  repaint.Requester
	Deferrer executor.Deferrer
	Clock    Clock

	Source   string
	Settings Settings
	// StartAt is where a still-frame export is taken.
	StartAt       time.Duration
	ScaleHint     int
	FramerateHint graph.Fraction

	Logger zerolog.Logger
}

// Job is one export. Graph goroutines write its state; everything else is
// owned by the UI goroutine.
type Job struct {
	ID       string
	Source   string
	Settings Settings

	graph    graph.Graph
	state    *stateCell
	eos      atomic.Bool
	repaint  repaint.Requester
	deferrer executor.Deferrer
	clock    Clock
	startAt  time.Duration
	log      zerolog.Logger

	estimator   Estimator
	progress    float64
	torn        bool
	errReported bool

	closeOnce sync.Once
	closeErr  error
}

// NewJob validates the settings and starts building the export graph. The
// job is Waiting; it starts rendering on the frame after the graph is built.
func NewJob(opts Options) (*Job, error) {
	if opts.Builder == nil || opts.Deferrer == nil {
		return nil, errors.New("render job needs a builder and a deferrer")
	}
	if err := opts.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid render settings: %w", err)
	}

	r := opts.Repaint
	if r == nil {
		r = repaint.Nop
	}
	clock := opts.Clock
	if clock == nil {
		clock = MonotonicClock()
	}

	id := uuid.NewString()
	j := &Job{
		ID:       id,
		Source:   opts.Source,
		Settings: opts.Settings,
		state:    &stateCell{},
		repaint:  r,
		deferrer: opts.Deferrer,
		clock:    clock,
		startAt:  opts.StartAt,
		log:      opts.Logger.With().Str("component", "render").Str("job", id).Logger(),
	}

	duration := opts.Settings.Duration
	if opts.Settings.Codec.Kind == CodecPNG {
		duration = 0
	}
	g, err := opts.Builder.Build(graph.Request{
		Source:           opts.Source,
		InstallAudioSink: opts.Settings.AudioSink(),
		InstallVideoSink: opts.Settings.VideoSink(),
		OnMessage:        j.handleMessage,
		DurationHint:     duration,
		ScaleHint:        opts.ScaleHint,
		FramerateHint:    opts.FramerateHint,
		OnReady:          j.onReady,
	})
	if err != nil {
		return nil, err
	}
	j.graph = g

	if err := g.SetState(graph.StatePaused); err != nil {
		_ = g.SetState(graph.StateNull)
		return nil, fmt.Errorf("pausing render graph: %w", err)
	}
	j.log.Info().Str("source", opts.Source).Str("output", opts.Settings.OutputPath).
		Str("codec", string(opts.Settings.Codec.Kind)).Msg("render job created")
	return j, nil
}

// =============================================================================
// GRAPH CALLBACKS
// =============================================================================

// onReady runs off the UI goroutine. Starting playback is deferred to the
// next frame.
func (j *Job) onReady(err error) {
	if err != nil {
		j.fail(err)
		return
	}
	j.deferrer.Defer(j.start)
}

func (j *Job) start() error {
	if j.Settings.Codec.Kind == CodecPNG && j.startAt > 0 {
		if err := j.graph.Seek(j.startAt); err != nil {
			j.fail(fmt.Errorf("seeking to frame: %w", err))
			return nil
		}
	}
	if err := j.graph.SetState(graph.StatePlaying); err != nil {
		j.fail(fmt.Errorf("starting render: %w", err))
	}
	return nil
}

// handleMessage runs on a graph goroutine under the graph's bus lock. The
// error and state transitions are applied here; stopping the graph at the
// end of the stream is deferred to the UI goroutine.
func (j *Job) handleMessage(msg graph.Message) {
	defer func() {
		if r := recover(); r != nil {
			j.fail(fmt.Errorf("render message handler: %v", r))
		}
	}()
	j.log.Debug().Stringer("msg", msg).Msg("bus message")

	switch msg.Kind {
	case graph.MessageError:
		j.fail(msg.Err)

	case graph.MessageEOS:
		if !msg.FromPipeline || !j.eos.CompareAndSwap(false, true) {
			return
		}
		end := j.clock()
		j.deferrer.Defer(func() error {
			// Complete is latched before stopping: the stop posts its own
			// state changes, which must not replace the end time.
			if j.state.set(JobState{Kind: StateComplete, EndTime: end}) {
				j.log.Info().Msg("render complete")
			}
			if err := j.Close(); err != nil {
				j.log.Warn().Err(err).Msg("stopping finished render")
			}
			return nil
		})

	case graph.MessageStateChanged:
		if !msg.FromPipeline {
			return
		}
		var next JobState
		switch {
		case msg.Pending == graph.StateNull || msg.Current == graph.StateNull:
			next = JobState{Kind: StateComplete, EndTime: j.clock()}
		case msg.Current == graph.StatePaused:
			next = JobState{Kind: StatePaused}
		case msg.Current == graph.StatePlaying:
			next = JobState{Kind: StateRendering}
		default:
			next = JobState{Kind: StateWaiting}
		}
		if j.state.set(next) {
			j.repaint.RequestRepaint()
		}
	}
}

// fail latches Error. A second error changes nothing and requests no
// repaint.
func (j *Job) fail(err error) {
	if err == nil {
		err = errors.New("unknown render error")
	}
	if j.state.set(JobState{Kind: StateError, Err: err}) {
		j.log.Warn().Err(err).Msg("render failed")
		j.repaint.RequestRepaint()
	}
}

// =============================================================================
// UI THREAD
// =============================================================================

// State returns the current job state.
func (j *Job) State() JobState { return j.state.get() }

// Update runs once per UI frame: it refreshes progress, feeds the estimator
// while the job is waiting or rendering, and tears the graph down once the
// job reached a terminal state.
func (j *Job) Update(now float64) {
	st := j.state.get()

	progress := j.progress
	switch st.Kind {
	case StateWaiting:
		progress = 0
	case StateComplete:
		progress = 1
	default:
		pos, okPos := j.graph.Position()
		dur, okDur := j.graph.Duration()
		if okPos && okDur && dur > 0 {
			progress = min(1, float64(pos)/float64(dur))
		}
	}

	if st.Kind == StateRendering || st.Kind == StateWaiting {
		j.estimator.Sample(progress, now)
	}
	j.progress = progress

	if st.Terminal() && !j.torn {
		j.torn = true
		if err := j.Close(); err != nil {
			j.log.Warn().Err(err).Msg("tearing down render graph")
		}
	}
}

// Progress returns the last computed progress in [0, 1].
func (j *Job) Progress() float64 { return j.progress }

// Estimator exposes the progress samples.
func (j *Job) Estimator() *Estimator { return &j.estimator }

// TimeRemaining returns whole seconds left. It is only meaningful while the
// job is rendering or paused.
func (j *Job) TimeRemaining(now float64) (float64, bool) {
	switch j.state.get().Kind {
	case StateRendering, StatePaused:
		return j.estimator.TimeRemaining(now)
	default:
		return 0, false
	}
}

// Elapsed returns how long a completed job took. A job that completed
// before its first sample took no time.
func (j *Job) Elapsed() time.Duration {
	st := j.state.get()
	if st.Kind != StateComplete {
		return 0
	}
	start, ok := j.estimator.Start()
	if !ok {
		start = st.EndTime
	}
	return time.Duration((st.EndTime - start) * float64(time.Second))
}

// Position and Duration report the graph's progress in media time.
func (j *Job) Position() (time.Duration, bool) { return j.graph.Position() }

func (j *Job) Duration() (time.Duration, bool) { return j.graph.Duration() }

// TakeError returns the job's error the first time it is asked after the job
// failed, so it is shown only once.
func (j *Job) TakeError() (error, bool) {
	st := j.state.get()
	if st.Kind != StateError || j.errReported {
		return nil, false
	}
	j.errReported = true
	return st.Err, true
}

// TogglePaused pauses a rendering job or resumes a paused one.
func (j *Job) TogglePaused() error {
	switch j.state.get().Kind {
	case StateRendering:
		return j.graph.SetState(graph.StatePaused)
	case StatePaused:
		return j.graph.SetState(graph.StatePlaying)
	}
	return nil
}

// Close stops and frees the graph. Only the first call has an effect.
func (j *Job) Close() error {
	j.closeOnce.Do(func() {
		j.closeErr = j.graph.SetState(graph.StateNull)
	})
	return j.closeErr
}
