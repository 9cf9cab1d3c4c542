// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package graph

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultProbeTimeout bounds the ffprobe call of a build.
const DefaultProbeTimeout = 15 * time.Second

// =============================================================================
// BUILDER
// =============================================================================

// FFmpegBuilder builds graphs backed by an ffmpeg process.
type FFmpegBuilder struct {
	FFmpeg       string
	FFprobe      string
	ProbeTimeout time.Duration
	Logger       zerolog.Logger
}

// NewFFmpegBuilder returns a builder using the given binaries.
func NewFFmpegBuilder(ffmpeg, ffprobe string, logger zerolog.Logger) *FFmpegBuilder {
	return &FFmpegBuilder{
		FFmpeg:       ffmpeg,
		FFprobe:      ffprobe,
		ProbeTimeout: DefaultProbeTimeout,
		Logger:       logger,
	}
}

// Build validates req synchronously and finishes the graph in the
// background: probing the source, then running the sink installers.
func (b *FFmpegBuilder) Build(req Request) (Graph, error) {
	if req.Source == "" {
		return nil, &BuildError{Stage: "source", Err: ErrNoSource}
	}
	if _, err := os.Stat(req.Source); err != nil {
		return nil, &BuildError{Stage: "source", Err: fmt.Errorf("%w: %s", ErrNoSource, req.Source)}
	}
	if req.InstallVideoSink == nil {
		return nil, &BuildError{Stage: "video sink", Err: errors.New("no video sink installer")}
	}

	timeout := b.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	g := &ffmpegGraph{
		ffmpeg:       b.FFmpeg,
		ffprobe:      b.FFprobe,
		probeTimeout: timeout,
		req:          req,
		log:          b.Logger.With().Str("source", req.Source).Logger(),
		state:        StateNull,
		target:       StateNull,
	}
	go g.prepare()
	return g, nil
}

// =============================================================================
// GRAPH
// =============================================================================

// run is one ffmpeg process. A preroll run decodes a single frame for a
// paused preview and never reports EOS.
type run struct {
	cmd       *exec.Cmd
	start     time.Duration
	preroll   bool
	suspended bool
	// ended is set once EOS was posted for this run. Only the supervisor
	// touches it.
	ended bool
}

type ffmpegGraph struct {
	ffmpeg       string
	ffprobe      string
	probeTimeout time.Duration
	req          Request
	log          zerolog.Logger
	readyOnce    sync.Once

	// busMu serializes message dispatch.
	busMu sync.Mutex

	mu       sync.Mutex
	spec     *Spec
	info     Info
	ready    bool
	state    State
	target   State
	position time.Duration
	run      *run
}

func (g *ffmpegGraph) prepare() {
	ctx, cancel := context.WithTimeout(context.Background(), g.probeTimeout)
	info, err := Probe(ctx, g.ffprobe, g.req.Source)
	cancel()
	if err != nil {
		g.notifyReady(&BuildError{Stage: "probe", Err: err})
		return
	}

	spec := &Spec{
		Source:   g.req.Source,
		Info:     info,
		Duration: g.req.DurationHint,
	}
	if info.IsStillImage {
		spec.Framerate = g.req.FramerateHint
		if spec.Framerate.IsZero() {
			spec.Framerate = Fraction{Num: 30, Den: 1}
		}
	}
	if g.req.ScaleHint > 0 {
		spec.AddVideoFilter(fmt.Sprintf("scale=-2:%d", g.req.ScaleHint))
	}

	spec.NoAudio = true
	if info.HasAudio && g.req.InstallAudioSink != nil {
		keep, err := g.req.InstallAudioSink(spec)
		if err != nil {
			g.notifyReady(&BuildError{Stage: "audio sink", Err: err})
			return
		}
		spec.NoAudio = !keep
	}
	if err := g.req.InstallVideoSink(spec); err != nil {
		g.notifyReady(&BuildError{Stage: "video sink", Err: err})
		return
	}

	g.log.Debug().
		Int("width", info.Width).
		Int("height", info.Height).
		Str("framerate", info.Framerate.String()).
		Bool("audio", info.HasAudio).
		Bool("still", info.IsStillImage).
		Msg("graph prepared")

	g.mu.Lock()
	g.spec = spec
	g.info = info
	g.ready = true
	target := g.target
	if target < StateReady {
		target = StateReady
	}
	msgs, err := g.stepToLocked(target)
	g.mu.Unlock()

	g.notifyReady(nil)
	g.post(msgs...)
	if err != nil {
		g.post(Message{Kind: MessageError, Source: "pipeline", FromPipeline: true, Err: err})
	}
}

func (g *ffmpegGraph) notifyReady(err error) {
	g.readyOnce.Do(func() {
		if err != nil {
			g.log.Warn().Err(err).Msg("graph build failed")
		}
		if g.req.OnReady != nil {
			g.req.OnReady(err)
		}
	})
}

// SetState moves the graph one step at a time towards target, posting a
// state-changed message per step. Before the graph is built the target is
// remembered and applied once it is.
func (g *ffmpegGraph) SetState(target State) error {
	if target < StateNull || target > StatePlaying {
		return fmt.Errorf("invalid target state %s", target)
	}
	g.mu.Lock()
	if !g.ready {
		g.target = target
		g.mu.Unlock()
		return nil
	}
	msgs, err := g.stepToLocked(target)
	g.mu.Unlock()

	g.post(msgs...)
	return err
}

func (g *ffmpegGraph) stepToLocked(target State) ([]Message, error) {
	var msgs []Message
	for g.state != target {
		next := g.state + 1
		if target < g.state {
			next = g.state - 1
		}
		if err := g.transitionLocked(g.state, next); err != nil {
			return msgs, err
		}
		msgs = append(msgs, Message{
			Kind:         MessageStateChanged,
			FromPipeline: true,
			Source:       "pipeline",
			Old:          g.state,
			Current:      next,
			Pending:      StateVoidPending,
		})
		g.state = next
	}
	return msgs, nil
}

func (g *ffmpegGraph) transitionLocked(from, to State) error {
	switch {
	case from == StateReady && to == StatePaused:
		if g.spec.Frames != nil {
			return g.startLocked(g.position, true)
		}
	case from == StatePaused && to == StatePlaying:
		if r := g.run; r != nil && !r.preroll {
			if !r.suspended {
				return nil
			}
			if err := resumeProcess(r.cmd.Process); err == nil {
				r.suspended = false
				return nil
			}
		}
		g.killLocked()
		return g.startLocked(g.position, false)
	case from == StatePlaying && to == StatePaused:
		if r := g.run; r != nil && !r.preroll {
			if err := suspendProcess(r.cmd.Process); err != nil {
				// Without suspension the process is stopped and restarted
				// from the current position on play.
				g.killLocked()
				return nil
			}
			r.suspended = true
		}
	case to <= StateReady:
		g.killLocked()
	}
	return nil
}

func (g *ffmpegGraph) CurrentState() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *ffmpegGraph) Position() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.ready {
		return 0, false
	}
	return g.position, true
}

func (g *ffmpegGraph) Duration() (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.durationLocked()
}

func (g *ffmpegGraph) durationLocked() (time.Duration, bool) {
	if !g.ready {
		return 0, false
	}
	d := g.info.Duration
	if hint := g.spec.Duration; hint > 0 && (d == 0 || hint < d) {
		d = hint
	}
	return d, d > 0
}

func (g *ffmpegGraph) Info() (Info, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.info, g.ready
}

// Seek restarts decoding at pos. A paused preview shows the frame at pos.
func (g *ffmpegGraph) Seek(pos time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if pos < 0 {
		pos = 0
	}
	if d, ok := g.durationLocked(); ok && pos > d {
		pos = d
	}
	g.position = pos
	if !g.ready {
		return nil
	}
	return g.restartLocked()
}

// Reconfigure applies fn to the spec and restarts the process in place.
func (g *ffmpegGraph) Reconfigure(fn func(*Spec) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.ready {
		return errors.New("graph not built yet")
	}
	if err := fn(g.spec); err != nil {
		return err
	}
	return g.restartLocked()
}

func (g *ffmpegGraph) restartLocked() error {
	g.killLocked()
	switch {
	case g.state == StatePlaying:
		return g.startLocked(g.position, false)
	case g.state == StatePaused && g.spec.Frames != nil:
		return g.startLocked(g.position, true)
	}
	return nil
}

// =============================================================================
// PROCESS
// =============================================================================

func (g *ffmpegGraph) startLocked(at time.Duration, preroll bool) error {
	args := g.spec.Args(at, preroll)
	cmd := exec.Command(g.ffmpeg, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &RuntimeError{Source: "ffmpeg", Err: err}
	}
	frames := g.spec.Frames
	var stdout io.ReadCloser
	if frames != nil {
		if stdout, err = cmd.StdoutPipe(); err != nil {
			return &RuntimeError{Source: "ffmpeg", Err: err}
		}
	}
	if err := cmd.Start(); err != nil {
		return &RuntimeError{Source: "ffmpeg", Err: err}
	}

	r := &run{cmd: cmd, start: at, preroll: preroll}
	g.run = r
	g.log.Debug().Strs("args", args).Bool("preroll", preroll).Msg("ffmpeg started")

	go g.supervise(r, frames, stdout, stderr)
	return nil
}

// killLocked stops the current process. Its supervisor sees that it is no
// longer current and reports nothing.
func (g *ffmpegGraph) killLocked() {
	r := g.run
	if r == nil {
		return
	}
	g.run = nil
	if err := r.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		g.log.Warn().Err(err).Msg("killing ffmpeg")
	}
}

func (g *ffmpegGraph) supervise(r *run, frames *FrameSink, stdout, stderr io.Reader) {
	var wg sync.WaitGroup
	if stdout != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := frames.Consume(stdout); err != nil {
				g.log.Debug().Err(err).Msg("frame reader stopped")
			}
		}()
	}

	errTail := newTail(8)
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		upd, ok := parseProgressLine(line)
		if !ok {
			errTail.add(line)
			continue
		}
		if g.applyProgress(r, upd) {
			g.log.Debug().Msg("ffmpeg reported end of stream")
			g.post(Message{Kind: MessageEOS, FromPipeline: true, Source: "pipeline"})
		}
	}
	wg.Wait()
	waitErr := r.cmd.Wait()
	g.post(g.exited(r, waitErr, errTail.String())...)
}

// applyProgress records a progress update of r. It reports whether EOS is
// due: the first "progress=end" of the current, non-preroll run.
func (g *ffmpegGraph) applyProgress(r *run, upd progressUpdate) bool {
	if r.preroll {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.run != r {
		return false
	}
	if upd.HasPosition {
		g.position = r.start + upd.Position
	}
	if upd.End && !r.ended {
		r.ended = true
		if d, ok := g.durationLocked(); ok {
			g.position = d
		}
		return true
	}
	return false
}

// exited returns the messages for the end of r: an error for a failed
// exit, EOS for a clean one unless progress already reported it, and
// nothing for a killed or preroll run.
func (g *ffmpegGraph) exited(r *run, waitErr error, stderrTail string) []Message {
	g.mu.Lock()
	current := g.run == r
	if current {
		g.run = nil
		if waitErr == nil && !r.preroll {
			if d, ok := g.durationLocked(); ok {
				g.position = d
			}
		}
	}
	g.mu.Unlock()

	if !current || r.preroll {
		return nil
	}
	if waitErr != nil {
		err := waitErr
		if stderrTail != "" {
			err = fmt.Errorf("%w: %s", waitErr, stderrTail)
		}
		g.log.Warn().Err(err).Msg("ffmpeg failed")
		return []Message{{Kind: MessageError, Source: "ffmpeg", Err: &RuntimeError{Source: "ffmpeg", Err: err}}}
	}
	if r.ended {
		return nil
	}
	r.ended = true
	g.log.Debug().Msg("ffmpeg reached end of stream")
	return []Message{{Kind: MessageEOS, FromPipeline: true, Source: "pipeline"}}
}

func (g *ffmpegGraph) post(msgs ...Message) {
	if g.req.OnMessage == nil || len(msgs) == 0 {
		return
	}
	g.busMu.Lock()
	defer g.busMu.Unlock()
	for _, m := range msgs {
		g.req.OnMessage(m)
	}
}
