// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/clipforge/mediastudio/internal/log"
	"github.com/clipforge/mediastudio/internal/metrics"
	"github.com/clipforge/mediastudio/internal/session"
)

// RemixAudio replaces or mixes a video's audio track with an optional
// looping background track at independent gain levels. The video stream
// is always stream-copied; only audio is transcoded.
func (p *Pipeline) RemixAudio(ctx context.Context, videoURL string, cfg RemixConfig) (RemixResult, error) {
	start := time.Now()
	res, err := p.remixAudio(ctx, videoURL, cfg)
	metrics.ObserveOp("remix", start, string(KindOf(err)))
	return res, err
}

func (p *Pipeline) remixAudio(ctx context.Context, videoURL string, cfg RemixConfig) (RemixResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.remix")
	defer span.End()

	if err := cfg.Validate(); err != nil {
		return RemixResult{}, &Error{Kind: KindInvalidAsset, Index: -1, Err: err}
	}

	sess, err := session.Open(p.workRoot)
	if err != nil {
		return RemixResult{}, classify(err, KindEncodeFailed, -1)
	}
	defer sess.Close()
	ctx = log.ContextWithJobID(ctx, sess.ID())

	videoPath, err := sess.Path("video")
	if err != nil {
		return RemixResult{}, classify(err, KindEncodeFailed, -1)
	}
	if _, err := p.fetcher.Fetch(ctx, videoURL, videoPath); err != nil {
		return RemixResult{}, classify(err, KindDownloadFailed, 0)
	}

	var backgroundPath string
	if cfg.BackgroundURL != "" {
		backgroundPath, err = sess.Path("background")
		if err != nil {
			return RemixResult{}, classify(err, KindEncodeFailed, -1)
		}
		if _, err := p.fetcher.Fetch(ctx, cfg.BackgroundURL, backgroundPath); err != nil {
			return RemixResult{}, classify(err, KindDownloadFailed, 1)
		}
	}

	pr, err := p.prober.Probe(ctx, videoPath)
	if err != nil {
		return RemixResult{}, classify(err, KindProbeFailed, 0)
	}

	output, err := sess.Path("remixed.mp4")
	if err != nil {
		return RemixResult{}, classify(err, KindEncodeFailed, -1)
	}

	args := remixArgs(videoPath, backgroundPath, output, cfg, pr.HasAudio)
	logger := log.WithComponentFromContext(ctx, "remix")
	logger.Debug().
		Bool("has_audio", pr.HasAudio).
		Bool("background", backgroundPath != "").
		Bool("mute_original", cfg.MuteOriginal).
		Msg("remix filter graph selected")

	if _, err := p.ffmpeg.Run(ctx, args, p.settings.RemixTimeout); err != nil {
		return RemixResult{}, classify(err, KindEncodeFailed, -1)
	}

	data, err := os.ReadFile(output) // #nosec G304 -- session-confined path
	if err != nil {
		return RemixResult{}, classify(fmt.Errorf("read remix output: %w", err), KindEncodeFailed, -1)
	}
	metrics.OutputBytes.WithLabelValues("remix").Observe(float64(len(data)))

	return RemixResult{Bytes: data, DurationSeconds: pr.DurationSeconds}, nil
}

// gainVolume renders a gain percentage as an ffmpeg volume factor
// (100 -> 1.00).
func gainVolume(percent int) string {
	return fmt.Sprintf("%.2f", float64(percent)/100.0)
}

// remixArgs builds one of four filter graphs depending on whether a
// background track exists and whether the original audio is kept. The
// video stream is mapped with -c:v copy in every branch.
func remixArgs(videoPath, backgroundPath, output string, cfg RemixConfig, hasAudio bool) []string {
	keepOriginal := !cfg.MuteOriginal && hasAudio
	hasBackground := backgroundPath != ""

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", videoPath,
	}

	switch {
	case hasBackground && keepOriginal:
		// Mix original with the indefinitely looped background; the video
		// input is shorter than the loop, so -shortest truncates to it.
		args = append(args,
			"-stream_loop", "-1",
			"-i", backgroundPath,
			"-filter_complex", fmt.Sprintf(
				"[0:a]volume=%s[orig];[1:a]volume=%s[bg];[orig][bg]amix=inputs=2:duration=first:dropout_transition=0[aout]",
				gainVolume(cfg.OriginalGainPercent), gainVolume(cfg.MusicGainPercent),
			),
			"-map", "0:v:0",
			"-map", "[aout]",
			"-shortest",
		)

	case hasBackground:
		// Background only: original muted or absent.
		args = append(args,
			"-stream_loop", "-1",
			"-i", backgroundPath,
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-af", fmt.Sprintf("volume=%s", gainVolume(cfg.MusicGainPercent)),
			"-shortest",
		)

	case keepOriginal:
		// Original only, re-leveled.
		args = append(args,
			"-map", "0:v:0",
			"-map", "0:a:0",
			"-af", fmt.Sprintf("volume=%s", gainVolume(cfg.OriginalGainPercent)),
		)

	default:
		// No background, original muted or absent: synthesized silence
		// trimmed to the video length.
		args = append(args,
			"-f", "lavfi",
			"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", normSampleRate),
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-shortest",
		)
	}

	args = append(args,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", fmt.Sprintf("%d", normSampleRate),
		"-ac", "2",
		"-movflags", "+faststart",
		output,
	)
	return args
}
