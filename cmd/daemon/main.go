// SPDX-License-Identifier: MIT

// Command daemon runs the mediastudio HTTP service: video merge, audio
// remix and image resize over ffmpeg/ffprobe, with results uploaded to
// the configured object store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clipforge/mediastudio/internal/api"
	"github.com/clipforge/mediastudio/internal/config"
	"github.com/clipforge/mediastudio/internal/fetch"
	"github.com/clipforge/mediastudio/internal/log"
	"github.com/clipforge/mediastudio/internal/pipeline"
	"github.com/clipforge/mediastudio/internal/probe"
	"github.com/clipforge/mediastudio/internal/storage"
	"github.com/clipforge/mediastudio/internal/telemetry"
	"github.com/clipforge/mediastudio/internal/toolrun"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// .env is a developer convenience; absence is normal in production.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Configure(log.Config{Level: cfg.LogLevel, Service: "mediastudio"})
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.NewProvider(ctx, telemetry.Config{
		ServiceName:    "mediastudio",
		ServiceVersion: version,
		Endpoint:       cfg.OTLPEndpoint,
		Protocol:       cfg.OTLPProtocol,
		SampleRate:     cfg.TraceSampleRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("telemetry init failed")
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	probeBin := config.ResolveProbeBin(cfg.FFprobeBin, cfg.FFmpegBin)
	ffmpeg := toolrun.New("ffmpeg", cfg.FFmpegBin)
	ffprobe := toolrun.New("ffprobe", probeBin)
	logger.Info().
		Str("ffmpeg", cfg.FFmpegBin).
		Str("ffprobe", probeBin).
		Msg("media tools resolved")

	prober := probe.New(ffprobe, cfg.ProbeTimeout)
	fetcher := fetch.NewHTTP(cfg.FetchTimeout, cfg.MaxFetchBytes)

	pipe := pipeline.New(ffmpeg, prober, fetcher, cfg.WorkDir, pipeline.Settings{
		MaxTotalDuration:     cfg.MaxTotalDuration,
		NormalizeTimeout:     cfg.NormalizeTimeout,
		ConcatTimeout:        cfg.ConcatTimeout,
		RemixTimeout:         cfg.RemixTimeout,
		NormalizeParallelism: cfg.NormalizeParallelism,
	})

	store, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("storage init failed")
	}

	server := api.New(pipe, store, ffmpeg, ffprobe, api.Config{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("stopped")
}

func buildStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		return storage.NewS3(ctx, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return storage.NewLocal(cfg.StorageDir)
	}
}
