// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package graph

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// probeOutput mirrors the subset of `ffprobe -print_format json` we read.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	FieldOrder   string `json:"field_order"`
	NbFrames     string `json:"nb_frames"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// Probe runs ffprobe on source.
func Probe(ctx context.Context, ffprobe, source string) (Info, error) {
	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_streams", "-show_format",
		source,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Info{}, fmt.Errorf("ffprobe: %s", msg)
		}
		return Info{}, fmt.Errorf("ffprobe: %w", err)
	}
	return ParseProbe(stdout.Bytes())
}

// ParseProbe converts ffprobe JSON output into Info.
func ParseProbe(data []byte) (Info, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Info{}, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	var info Info
	var video *probeStream
	for i := range out.Streams {
		s := &out.Streams[i]
		switch s.CodecType {
		case "video":
			if video == nil {
				video = s
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if video == nil {
		return Info{}, fmt.Errorf("no video stream")
	}

	info.Width = video.Width
	info.Height = video.Height
	info.IsStillImage = isStillImage(out.Format.FormatName, video)
	info.InterlaceMode = interlaceMode(video.FieldOrder)

	rate := video.AvgFrameRate
	if rate == "" || rate == "0/0" {
		rate = video.RFrameRate
	}
	if fr, err := ParseFraction(rate); err == nil && !fr.IsZero() {
		info.Framerate = fr
	}

	if !info.IsStillImage && out.Format.Duration != "" {
		secs, err := strconv.ParseFloat(out.Format.Duration, 64)
		if err == nil && secs > 0 {
			info.Duration = time.Duration(secs * float64(time.Second))
		}
	}
	return info, nil
}

func isStillImage(formatName string, video *probeStream) bool {
	if formatName == "image2" || strings.HasSuffix(formatName, "_pipe") {
		return true
	}
	return video.NbFrames == "1"
}

func interlaceMode(fieldOrder string) InterlaceMode {
	switch fieldOrder {
	case "tt", "tb":
		return InterlaceTopFirst
	case "bb", "bt":
		return InterlaceBottomFirst
	default:
		return InterlaceProgressive
	}
}
