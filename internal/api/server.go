// SPDX-License-Identifier: MIT

// Package api exposes the processing pipeline over HTTP and uploads the
// rendered bytes to the object store.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clipforge/mediastudio/internal/pipeline"
	"github.com/clipforge/mediastudio/internal/storage"
	"github.com/clipforge/mediastudio/internal/toolrun"
)

// MediaService is the pipeline surface the handlers call. *pipeline.Pipeline
// satisfies it; tests substitute fakes.
type MediaService interface {
	MergeVideos(ctx context.Context, sourceURLs []string, cfg pipeline.MergeConfig) (pipeline.MergeResult, error)
	RemixAudio(ctx context.Context, videoURL string, cfg pipeline.RemixConfig) (pipeline.RemixResult, error)
	ResizeImage(ctx context.Context, imageURL string, target pipeline.ResizeTarget) (pipeline.ResizeResult, error)
}

// Config tunes the HTTP surface.
type Config struct {
	// RateLimitPerMinute caps requests per client IP (0 disables).
	RateLimitPerMinute int
	// RequestTimeout bounds one pipeline request end to end.
	RequestTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Minute
	}
	return c
}

// Server holds the handler dependencies.
type Server struct {
	media   MediaService
	store   storage.ObjectStore
	ffmpeg  toolrun.Runner
	ffprobe toolrun.Runner
	cfg     Config
}

// New wires a Server. ffmpeg and ffprobe are only used by the health
// endpoint to verify the binaries are invocable.
func New(media MediaService, store storage.ObjectStore, ffmpeg, ffprobe toolrun.Runner, cfg Config) *Server {
	return &Server{
		media:   media,
		store:   store,
		ffmpeg:  ffmpeg,
		ffprobe: ffprobe,
		cfg:     cfg.withDefaults(),
	}
}

// Router builds the chi router with the canonical middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(requestLogger)
	if s.cfg.RateLimitPerMinute > 0 {
		r.Use(rateLimit(s.cfg.RateLimitPerMinute, time.Minute))
	}

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/media", func(r chi.Router) {
		r.Post("/merge", s.handleMerge)
		r.Post("/remix", s.handleRemix)
		r.Post("/resize", s.handleResize)
	})

	return otelhttp.NewHandler(r, "mediastudio.api")
}
