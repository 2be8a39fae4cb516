// SPDX-License-Identifier: MIT

// Package pipeline implements the media-studio processing core: video
// merge, audio remix and image resize. It is a request-in/bytes-out
// transformation library; storage and HTTP live with the caller.
package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/clipforge/mediastudio/internal/fetch"
	"github.com/clipforge/mediastudio/internal/probe"
	"github.com/clipforge/mediastudio/internal/toolrun"
)

// Prober abstracts media metadata extraction so tests can substitute
// fakes.
type Prober interface {
	Probe(ctx context.Context, path string) (probe.Result, error)
}

// Settings carries the tunable limits. Zero values fall back to defaults.
type Settings struct {
	// MaxTotalDuration caps the summed duration of all merge inputs.
	MaxTotalDuration time.Duration
	// NormalizeTimeout bounds one per-clip re-encode.
	NormalizeTimeout time.Duration
	// ConcatTimeout bounds the stream-copy concatenation.
	ConcatTimeout time.Duration
	// RemixTimeout bounds the audio remix encode.
	RemixTimeout time.Duration
	// NormalizeParallelism bounds concurrent per-clip re-encodes.
	NormalizeParallelism int
}

func (s Settings) withDefaults() Settings {
	if s.MaxTotalDuration <= 0 {
		s.MaxTotalDuration = 300 * time.Second
	}
	if s.NormalizeTimeout <= 0 {
		s.NormalizeTimeout = 5 * time.Minute
	}
	if s.ConcatTimeout <= 0 {
		s.ConcatTimeout = 2 * time.Minute
	}
	if s.RemixTimeout <= 0 {
		s.RemixTimeout = 5 * time.Minute
	}
	if s.NormalizeParallelism <= 0 {
		s.NormalizeParallelism = 2
	}
	return s
}

// Pipeline ties the stages together. One instance serves all requests;
// all per-request state lives in each invocation's work session.
type Pipeline struct {
	ffmpeg   toolrun.Runner
	prober   Prober
	fetcher  fetch.Fetcher
	workRoot string
	settings Settings
	tracer   trace.Tracer
}

// New wires a Pipeline. ffmpeg is the encoder/muxer runner, prober the
// metadata extractor, fetcher the asset downloader; workRoot is where
// per-invocation session directories are created.
func New(ffmpeg toolrun.Runner, prober Prober, fetcher fetch.Fetcher, workRoot string, settings Settings) *Pipeline {
	return &Pipeline{
		ffmpeg:   ffmpeg,
		prober:   prober,
		fetcher:  fetcher,
		workRoot: workRoot,
		settings: settings.withDefaults(),
		tracer:   otel.Tracer("github.com/clipforge/mediastudio/internal/pipeline"),
	}
}
