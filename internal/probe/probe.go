// SPDX-License-Identifier: MIT

// Package probe extracts stream metadata from media files via ffprobe.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/clipforge/mediastudio/internal/toolrun"
)

// Result contains the metadata the pipeline decides on: duration,
// dimensions and audio-stream presence. Derived exactly once per input.
type Result struct {
	DurationSeconds float64
	Width           int
	Height          int
	HasAudio        bool
}

// IsVertical reports whether the primary video stream is taller than wide.
func (r Result) IsVertical() bool {
	return r.Height > r.Width
}

// Error reports a failed probe: the subprocess exited non-zero or its
// output could not be parsed.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Prober wraps an ffprobe invocation behind the uniform tool runner.
type Prober struct {
	runner  toolrun.Runner
	timeout time.Duration
}

// New creates a Prober. timeout bounds each ffprobe call.
func New(runner toolrun.Runner, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Prober{runner: runner, timeout: timeout}
}

// Probe runs ffprobe on path and returns parsed stream metadata.
// One short-lived subprocess per call; no filesystem writes.
func (p *Prober) Probe(ctx context.Context, path string) (Result, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	}

	out, err := p.runner.Run(ctx, args, p.timeout)
	if err != nil {
		return Result{}, &Error{Path: path, Err: err}
	}

	res, err := parseOutput(out.Stdout)
	if err != nil {
		return Result{}, &Error{Path: path, Err: err}
	}
	return res, nil
}

// ffprobeOutput is the top-level JSON structure of
// `ffprobe -print_format json -show_streams -show_format`.
type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"` // "video" or "audio"
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseOutput(raw []byte) (Result, error) {
	var data ffprobeOutput
	if err := json.Unmarshal(raw, &data); err != nil {
		return Result{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var res Result
	var videoDuration float64
	for _, s := range data.Streams {
		switch s.CodecType {
		case "video":
			if res.Width == 0 {
				res.Width = s.Width
				res.Height = s.Height
			}
			if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > videoDuration {
				videoDuration = d
			}
		case "audio":
			res.HasAudio = true
		}
	}

	// Container duration preferred; some containers (e.g. raw streams) omit
	// it, in which case the primary video stream's duration stands in.
	if d, err := strconv.ParseFloat(data.Format.Duration, 64); err == nil && d > 0 {
		res.DurationSeconds = d
	} else {
		res.DurationSeconds = videoDuration
	}

	if res.Width == 0 && res.Height == 0 && !res.HasAudio {
		return Result{}, fmt.Errorf("no decodable streams found")
	}
	return res, nil
}
