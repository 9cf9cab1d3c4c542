// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package graph

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/ntsc-tui/internal/repaint"
)

// =============================================================================
// FRACTIONS & STATES
// =============================================================================

func TestParseFraction(t *testing.T) {
	tests := []struct {
		in      string
		want    Fraction
		wantErr bool
	}{
		{"30000/1001", Fraction{30000, 1001}, false},
		{"25", Fraction{25, 1}, false},
		{" 24/1 ", Fraction{24, 1}, false},
		{"abc", Fraction{}, true},
		{"1/x", Fraction{}, true},
	}
	for _, tt := range tests {
		got, err := ParseFraction(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	assert.InDelta(t, 29.97, Fraction{30000, 1001}.FPS(), 0.01)
	assert.Zero(t, Fraction{1, 0}.FPS())
	assert.Equal(t, "30000/1001", Fraction{30000, 1001}.String())
	assert.Equal(t, "25", Fraction{25, 1}.String())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "NULL", StateNull.String())
	assert.Equal(t, "PLAYING", StatePlaying.String())
	assert.Equal(t, "VOID_PENDING", State(42).String())
}

func TestErrorsUnwrap(t *testing.T) {
	base := errors.New("no such element")
	var err error = &BuildError{Stage: "video sink", Err: base}
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "video sink")

	err = &RuntimeError{Source: "ffmpeg", Err: base}
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "ffmpeg: no such element", err.Error())
}

// =============================================================================
// SPEC ARGUMENTS
// =============================================================================

func TestSpecArgs_Video(t *testing.T) {
	spec := &Spec{
		Source:     "in.mp4",
		Info:       Info{HasAudio: true},
		Duration:   10 * time.Second,
		VideoArgs:  []string{"-c:v", "libx264"},
		AudioArgs:  []string{"-c:a", "aac"},
		OutputArgs: []string{"-f", "mp4"},
		Output:     "out.mp4",
	}
	spec.AddVideoFilter("scale=-2:480", "", "noise=alls=10")

	args := strings.Join(spec.Args(4*time.Second, false), " ")
	assert.Contains(t, args, "-ss 4.000 -i in.mp4")
	assert.Contains(t, args, "-t 6.000")
	assert.Contains(t, args, "-vf scale=-2:480,noise=alls=10")
	assert.Contains(t, args, "-c:a aac")
	assert.True(t, strings.HasSuffix(args, "-f mp4 -y out.mp4"))
	assert.NotContains(t, args, "-an")
	assert.NotContains(t, args, "-re")
}

func TestSpecArgs_SingleFrameDropsAudioAndLimit(t *testing.T) {
	spec := &Spec{
		Source:    "in.mp4",
		Info:      Info{HasAudio: true},
		Duration:  10 * time.Second,
		Realtime:  true,
		AudioArgs: []string{"-c:a", "aac"},
		Output:    "pipe:1",
	}
	args := strings.Join(spec.Args(0, true), " ")
	assert.Contains(t, args, "-frames:v 1")
	assert.Contains(t, args, "-an")
	assert.NotContains(t, args, "-t ")
	assert.NotContains(t, args, "-re")
	assert.NotContains(t, args, "-ss")
}

func TestSpecArgs_StillImageLoops(t *testing.T) {
	spec := &Spec{
		Source:    "in.png",
		Info:      Info{IsStillImage: true},
		Framerate: Fraction{30, 1},
		Duration:  5 * time.Second,
		Output:    "out.mkv",
	}
	args := strings.Join(spec.Args(2*time.Second, false), " ")
	assert.Contains(t, args, "-loop 1 -framerate 30 -i in.png")
	assert.NotContains(t, args, "-ss", "still images have no timeline to seek in")
	assert.Contains(t, args, "-an")
}

// =============================================================================
// PROBE
// =============================================================================

const probeVideo = `{
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080,
     "r_frame_rate": "30000/1001", "avg_frame_rate": "30000/1001", "field_order": "tt"},
    {"codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": "12.500000"}
}`

const probeImage = `{
  "streams": [
    {"codec_type": "video", "codec_name": "png", "width": 640, "height": 480,
     "r_frame_rate": "25/1", "avg_frame_rate": "0/0"}
  ],
  "format": {"format_name": "png_pipe"}
}`

func TestParseProbe(t *testing.T) {
	info, err := ParseProbe([]byte(probeVideo))
	require.NoError(t, err)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.True(t, info.HasAudio)
	assert.False(t, info.IsStillImage)
	assert.Equal(t, InterlaceTopFirst, info.InterlaceMode)
	assert.Equal(t, Fraction{30000, 1001}, info.Framerate)
	assert.Equal(t, 12500*time.Millisecond, info.Duration)

	info, err = ParseProbe([]byte(probeImage))
	require.NoError(t, err)
	assert.True(t, info.IsStillImage)
	assert.False(t, info.HasAudio)
	assert.Equal(t, Fraction{25, 1}, info.Framerate)
	assert.Equal(t, InterlaceProgressive, info.InterlaceMode)
	assert.Zero(t, info.Duration)
}

func TestParseProbe_Errors(t *testing.T) {
	_, err := ParseProbe([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseProbe([]byte(`{"streams":[{"codec_type":"audio"}],"format":{}}`))
	assert.ErrorContains(t, err, "no video stream")
}

// =============================================================================
// PROGRESS
// =============================================================================

func TestParseProgressLine(t *testing.T) {
	upd, ok := parseProgressLine("out_time_us=2500000")
	require.True(t, ok)
	assert.True(t, upd.HasPosition)
	assert.Equal(t, 2500*time.Millisecond, upd.Position)

	upd, ok = parseProgressLine("progress=end")
	require.True(t, ok)
	assert.True(t, upd.End)

	upd, ok = parseProgressLine("progress=continue")
	require.True(t, ok)
	assert.False(t, upd.End)

	upd, ok = parseProgressLine("out_time_us=N/A")
	require.True(t, ok)
	assert.False(t, upd.HasPosition)

	_, ok = parseProgressLine("[h264 @ 0x55] error while decoding MB 3 4")
	assert.False(t, ok)
	_, ok = parseProgressLine("Error opening output file: x=y")
	assert.False(t, ok)
}

// runningGraph returns a built graph with r as its current process.
func runningGraph(r *run) *ffmpegGraph {
	return &ffmpegGraph{
		log:   zerolog.Nop(),
		ready: true,
		state: StatePlaying,
		spec:  &Spec{},
		info:  Info{Duration: 10 * time.Second},
		run:   r,
	}
}

func TestApplyProgress_EndPostsEOSOnce(t *testing.T) {
	r := &run{start: 2 * time.Second}
	g := runningGraph(r)

	assert.False(t, g.applyProgress(r, progressUpdate{Position: time.Second, HasPosition: true}))
	pos, _ := g.Position()
	assert.Equal(t, 3*time.Second, pos)

	assert.True(t, g.applyProgress(r, progressUpdate{End: true}), "progress=end is end of stream")
	pos, _ = g.Position()
	assert.Equal(t, 10*time.Second, pos)
	assert.False(t, g.applyProgress(r, progressUpdate{End: true}))

	assert.Empty(t, g.exited(r, nil, ""), "a clean exit after progress=end posts nothing more")
}

func TestApplyProgress_IgnoresStaleAndPrerollRuns(t *testing.T) {
	preroll := &run{preroll: true}
	g := runningGraph(preroll)
	assert.False(t, g.applyProgress(preroll, progressUpdate{End: true}))
	assert.Empty(t, g.exited(preroll, nil, ""))

	killed := &run{}
	g = runningGraph(&run{})
	assert.False(t, g.applyProgress(killed, progressUpdate{End: true}))
	assert.Empty(t, g.exited(killed, errors.New("signal: killed"), ""))
}

func TestExited_CleanExitPostsEOS(t *testing.T) {
	r := &run{}
	g := runningGraph(r)

	msgs := g.exited(r, nil, "")
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageEOS, msgs[0].Kind)
	assert.True(t, msgs[0].FromPipeline)
	pos, _ := g.Position()
	assert.Equal(t, 10*time.Second, pos)
}

func TestExited_FailureCarriesStderrTail(t *testing.T) {
	r := &run{}
	g := runningGraph(r)
	r.ended = true

	msgs := g.exited(r, errors.New("exit status 1"), "No space left on device")
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageError, msgs[0].Kind)
	var rt *RuntimeError
	require.ErrorAs(t, msgs[0].Err, &rt)
	assert.Contains(t, rt.Error(), "No space left on device")
}

func TestTailKeepsLastLines(t *testing.T) {
	tl := newTail(2)
	tl.add("one")
	tl.add("   ")
	tl.add("two")
	tl.add("three")
	assert.Equal(t, "two; three", tl.String())
}

// =============================================================================
// FRAME SINK
// =============================================================================

func TestFrameSink_ConsumeKeepsLatest(t *testing.T) {
	var rec repaint.Recorder
	sink := NewFrameSink(2, 1, 1000, &rec)
	require.Nil(t, sink.Latest())

	data := []byte{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
		99, // partial trailing frame
	}
	require.NoError(t, sink.Consume(bytes.NewReader(data)))

	f := sink.Latest()
	require.NotNil(t, f)
	assert.Equal(t, uint64(2), f.Seq)
	r, g, b := f.At(1, 0)
	assert.Equal(t, [3]uint8{10, 11, 12}, [3]uint8{r, g, b})
	assert.GreaterOrEqual(t, rec.Count(), 1)
}

func TestFrameSink_Install(t *testing.T) {
	sink := NewFrameSink(80, 48, 30, repaint.Nop)
	spec := &Spec{Source: "in.mp4"}
	require.NoError(t, sink.Install(spec))

	assert.Equal(t, "pipe:1", spec.Output)
	assert.True(t, spec.Realtime)
	assert.Same(t, sink, spec.Frames)
	assert.Contains(t, strings.Join(spec.VideoFilters, ","), "pad=80:48")

	bad := NewFrameSink(0, 0, 30, repaint.Nop)
	assert.Error(t, bad.Install(&Spec{}))
}

// =============================================================================
// BUILDER
// =============================================================================

func TestFFmpegBuilder_MissingSourceFailsSynchronously(t *testing.T) {
	b := NewFFmpegBuilder("ffmpeg", "ffprobe", testLogger())

	_, err := b.Build(Request{Source: "/definitely/not/here.mp4", InstallVideoSink: func(*Spec) error { return nil }})
	require.ErrorIs(t, err, ErrNoSource)

	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "source", be.Stage)

	_, err = b.Build(Request{})
	require.ErrorIs(t, err, ErrNoSource)
}

func TestFFmpegBuilder_RequiresVideoSink(t *testing.T) {
	b := NewFFmpegBuilder("ffmpeg", "ffprobe", testLogger())
	_, err := b.Build(Request{Source: "graph_test.go"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "video sink")
}

func testLogger() zerolog.Logger { return zerolog.Nop() }
