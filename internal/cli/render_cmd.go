// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render_cmd.go - Headless export.
//
// The render command drives the same App the editor uses, without a tea
// program: a repaint.Signal wakes the loop and a ticker keeps the progress
// line moving between wake-ups.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jeranaias/ntsc-tui/internal/app"
	"github.com/jeranaias/ntsc-tui/internal/config"
	"github.com/jeranaias/ntsc-tui/internal/graph"
	"github.com/jeranaias/ntsc-tui/internal/pipeline"
	"github.com/jeranaias/ntsc-tui/internal/preset"
	"github.com/jeranaias/ntsc-tui/internal/render"
	"github.com/jeranaias/ntsc-tui/internal/repaint"
	"github.com/jeranaias/ntsc-tui/internal/ui/components"
	"github.com/jeranaias/ntsc-tui/internal/util"
)

const renderUsage = "ntsc-tui render clip.mp4 -o clip_ntsc.mp4"

// defaultProgressInterval is how often progress is redrawn when nothing
// else wakes the loop.
const defaultProgressInterval = 250 * time.Millisecond

// =============================================================================
// ARGUMENTS
// =============================================================================

// RenderRequest is a parsed render command.
type RenderRequest struct {
	Input  string
	Output string
	Preset string

	// Duration replaces the export length when HasDuration.
	Duration    time.Duration
	HasDuration bool
}

// ParseRender checks the render arguments and applies the codec flags to
// cfg, which becomes the render defaults of the headless App.
func ParseRender(p *ArgParser, cfg *config.Config) (RenderRequest, error) {
	req := RenderRequest{
		Input:  p.Positional(0),
		Output: p.Flag("output", "o"),
		Preset: p.Flag("preset"),
	}
	if req.Input == "" {
		return req, ErrMissingArgument("input", renderUsage)
	}
	if req.Output == "" {
		return req, ErrMissingArgument("output", renderUsage)
	}
	if _, err := os.Stat(req.Input); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return req, &NotFoundError{Resource: "input", ID: req.Input}
		}
		return req, NewCommandError("render", "open input", req.Input, err)
	}

	codec := &cfg.Render.Codec
	if s := p.Flag("codec"); s != "" {
		kind, err := render.ParseCodec(s)
		if err != nil {
			return req, NewValidationErrorWithExample("codec", s, err.Error(), "--codec ffv1")
		}
		codec.Kind = kind
	}
	if v, ok, err := p.FlagInt("quality"); err != nil {
		return req, err
	} else if ok {
		codec.H264.Quality = v
	}
	if v, ok, err := p.FlagInt("speed"); err != nil {
		return req, err
	} else if ok {
		codec.H264.EncodeSpeed = v
	}
	if v, ok, err := p.FlagInt("bit-depth"); err != nil {
		return req, err
	} else if ok {
		codec.FFV1.BitDepth = v
	}
	if p.HasFlag("ten-bit") {
		codec.H264.TenBit = p.BoolFlag("ten-bit")
	}
	if p.HasFlag("chroma-subsampling") {
		on := p.BoolFlag("chroma-subsampling")
		switch codec.Kind {
		case render.CodecH264:
			codec.H264.ChromaSubsampling = on
		case render.CodecFFV1:
			codec.FFV1.ChromaSubsampling = on
		}
	}
	if err := codec.Validate(); err != nil {
		return req, NewValidationErrorWithExample("codec options", "", err.Error(), "--codec h264 --quality 28 --speed 6")
	}
	if p.HasFlag("interlace") {
		cfg.Render.Interlaced = p.BoolFlag("interlace")
	}

	d, ok, err := p.FlagSeconds("duration")
	if err != nil {
		return req, err
	}
	if ok {
		if d <= 0 {
			return req, NewValidationErrorWithExample("duration", p.Flag("duration"), "must be positive", "--duration 10")
		}
		req.Duration, req.HasDuration = d, true
	}
	return req, nil
}

// =============================================================================
// RUN
// =============================================================================

// RenderOptions configures RunRender.
type RenderOptions struct {
	Request RenderRequest
	Config  *config.Config
	Builder graph.Builder
	Logger  zerolog.Logger

	// Out receives progress. Progress is redrawn in place when Out is a
	// terminal.
	Out   io.Writer
	Quiet bool

	// Interval is how often progress is redrawn without a wake-up. Zero
	// uses 250ms.
	Interval time.Duration
}

// RunRender loads the input, starts one export with the configured codec
// and waits for it to finish. Cancelling ctx stops the export.
func RunRender(ctx context.Context, opts RenderOptions) error {
	sig := repaint.NewSignal()
	a := app.New(app.Options{
		Builder: opts.Builder,
		Repaint: sig,
		Dialogs: app.NoDialogs{},
		Config:  opts.Config,
		Logger:  opts.Logger,
	})
	defer a.Close()

	h, err := newHeadlessRender(a, opts)
	if err != nil {
		return err
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := h.step()
		if done {
			h.out.finish(h.view(), err)
			return err
		}
		select {
		case <-ctx.Done():
			h.out.abort()
			return fmt.Errorf("render cancelled: %w", ctx.Err())
		case <-sig.C():
		case <-ticker.C:
		}
	}
}

// headlessRender is the state of one headless export. step is called from
// the loop goroutine only.
type headlessRender struct {
	app *app.App
	req RenderRequest
	log zerolog.Logger
	job *render.Job
	out *progressPrinter
}

func newHeadlessRender(a *app.App, opts RenderOptions) (*headlessRender, error) {
	req := opts.Request
	if req.Preset != "" {
		s, err := preset.Load(req.Preset)
		if err != nil {
			return nil, NewCommandError("render", "load preset", req.Preset, err)
		}
		if err := a.SetEffect(s); err != nil {
			return nil, err
		}
	}
	if err := a.LoadVideo(req.Input); err != nil {
		return nil, err
	}

	out := opts.Out
	if out == nil || opts.Quiet {
		out = io.Discard
	}
	return &headlessRender{
		app: a,
		req: req,
		log: opts.Logger.With().Str("component", "render-cmd").Logger(),
		out: newProgressPrinter(out, IsWriterTTY(out)),
	}, nil
}

// step runs one frame. It starts the job once the source is loaded and
// reports whether the export is over.
func (h *headlessRender) step() (bool, error) {
	h.app.Frame()
	if err := h.app.LastError(); err != nil {
		return true, err
	}

	if h.job == nil {
		err := h.tryStart()
		return err != nil, err
	}

	v := h.view()
	h.out.update(v)
	switch v.State {
	case render.StateComplete:
		return true, nil
	case render.StateError:
		return true, &app.Error{Kind: app.KindRender, Err: v.Err}
	}
	return false, nil
}

// tryStart starts the job once the preview knows its source. The preview
// is dropped after that; the job decodes the source on its own.
func (h *headlessRender) tryStart() error {
	p := h.app.Preview()
	if p == nil {
		return errors.New("source closed before the export started")
	}
	if p.State().Status != pipeline.StatusLoaded || !p.Metadata().Known {
		return nil
	}

	s := h.app.RenderSettings(h.req.Output)
	if h.req.HasDuration {
		s.Duration = h.req.Duration
	}
	job, err := h.app.StartRender(s)
	if err != nil {
		return err
	}
	h.job = job
	h.log.Info().
		Str("job", job.ID).
		Str("output", job.Settings.OutputPath).
		Str("codec", string(s.Codec.Kind)).
		Msg("export started")

	if err := h.app.RemovePipeline(); err != nil {
		h.log.Warn().Err(err).Msg("closing preview")
	}
	return nil
}

func (h *headlessRender) view() components.JobView {
	if h.job == nil {
		return components.JobView{Output: h.req.Output, State: render.StateWaiting}
	}
	st := h.job.State()
	v := components.JobView{
		Output:   h.job.Settings.OutputPath,
		State:    st.Kind,
		Progress: h.job.Progress(),
		Elapsed:  h.job.Elapsed(),
		Err:      st.Err,
	}
	v.Remaining, v.HasRemaining = h.job.TimeRemaining(h.app.Now())
	return v
}

// =============================================================================
// PROGRESS OUTPUT
// =============================================================================

// progressPrinter draws a bar that is redrawn in place on a terminal and
// prints a line per tenth of progress otherwise.
type progressPrinter struct {
	w      io.Writer
	tty    bool
	bar    progress.Model
	width  int
	bucket int
	drawn  bool
}

func newProgressPrinter(w io.Writer, tty bool) *progressPrinter {
	p := &progressPrinter{
		w:      w,
		tty:    tty,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		width:  DefaultTerminalWidth,
		bucket: -1,
	}
	if tty {
		p.width = GetTerminalWidth()
	}
	return p
}

func (p *progressPrinter) update(v components.JobView) {
	status := components.JobStatus(v)
	if p.tty {
		p.bar.Width = max(p.width-util.StringWidth(status)-2, 10)
		line := p.bar.ViewAs(math.Max(0, math.Min(1, v.Progress))) + " " + status
		pad := max(0, p.width-1-lipgloss.Width(line))
		fmt.Fprint(p.w, "\r"+line+strings.Repeat(" ", pad))
		p.drawn = true
		return
	}
	if v.State != render.StateRendering {
		return
	}
	if b := int(v.Progress * 10); b > p.bucket {
		p.bucket = b
		fmt.Fprintf(p.w, "%s %s\n", filepath.Base(v.Output), status)
	}
}

func (p *progressPrinter) finish(v components.JobView, err error) {
	p.abort()
	if err != nil {
		return
	}
	fmt.Fprintf(p.w, "%s %s %s\n",
		RenderConditional(SuccessStyle, "Saved"),
		v.Output,
		RenderConditional(DimStyle, "("+components.JobStatus(v)+")"))
}

// abort ends a line drawn in place.
func (p *progressPrinter) abort() {
	if p.drawn {
		fmt.Fprintln(p.w)
		p.drawn = false
	}
}
