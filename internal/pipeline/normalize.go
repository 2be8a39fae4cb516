// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"fmt"

	"github.com/clipforge/mediastudio/internal/log"
	"github.com/clipforge/mediastudio/internal/probe"
	"github.com/clipforge/mediastudio/internal/session"
)

// Normalized intermediates share these parameters so the concat stage can
// stream-copy without re-encoding.
const (
	normFPS        = 30
	normPixFmt     = "yuv420p"
	normSampleRate = 44100
	normAudioRate  = "128k"
)

// normTarget is the uniform shape every clip is re-encoded to.
type normTarget struct {
	width   int
	height  int
	quality QualityPolicy
}

// presetForQuality maps the named tiers to x264 preset/CRF pairs.
// draft favors speed, high favors quality; the numbers are x264-specific
// equivalents of the tier semantics, not portable constants.
func presetForQuality(q QualityPolicy) (preset string, crf int) {
	if q == QualityHigh {
		return "slow", 18
	}
	return "veryfast", 26
}

// videoFilter scales preserving aspect ratio, center-pads to the exact
// target frame, forces a constant frame rate and normalizes pixel format.
func videoFilter(t normTarget) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,fps=%d,format=%s",
		t.width, t.height, t.width, t.height, normFPS, normPixFmt,
	)
}

// loudnormFilter resamples to the fixed rate, downmixes to stereo and
// applies broadcast-target loudness normalization.
func loudnormFilter() string {
	return fmt.Sprintf(
		"aresample=%d,aformat=sample_fmts=fltp:channel_layouts=stereo,loudnorm=I=-16:TP=-1.5:LRA=11",
		normSampleRate,
	)
}

// normalizeArgs builds the ffmpeg invocation for one clip. When silent is
// true the source audio is ignored and a synthesized silent stereo track
// is muxed instead, trimmed to the video length via -shortest.
func normalizeArgs(input, output string, pr probe.Result, t normTarget, silent bool) []string {
	preset, crf := presetForQuality(t.quality)

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", input,
	}

	if silent {
		args = append(args,
			"-f", "lavfi",
			"-t", fmt.Sprintf("%.3f", pr.DurationSeconds),
			"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", normSampleRate),
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-shortest",
		)
	} else {
		args = append(args,
			"-map", "0:v:0",
			"-map", "0:a:0",
			"-af", loudnormFilter(),
		)
	}

	args = append(args,
		"-vf", videoFilter(t),
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", fmt.Sprintf("%d", crf),
		"-c:a", "aac",
		"-b:a", normAudioRate,
		"-ar", fmt.Sprintf("%d", normSampleRate),
		"-ac", "2",
		"-f", "mpegts",
		output,
	)
	return args
}

// normalizeClip re-encodes one source clip into the uniform intermediate
// format. A failed attempt with real audio falls back exactly once to a
// synthesized silent track; a clip is never failed solely because its
// audio stream is malformed. Sources without audio go straight to the
// silent path.
func (p *Pipeline) normalizeClip(ctx context.Context, sess *session.Session, index int, input string, pr probe.Result, t normTarget) (string, error) {
	logger := log.WithComponentFromContext(ctx, "normalize")

	output, err := sess.Path(fmt.Sprintf("norm-%03d.ts", index))
	if err != nil {
		return "", classify(err, KindEncodeFailed, index)
	}

	if pr.HasAudio {
		_, runErr := p.ffmpeg.Run(ctx, normalizeArgs(input, output, pr, t, false), p.settings.NormalizeTimeout)
		if runErr == nil {
			return output, nil
		}
		if ctx.Err() != nil {
			return "", classify(runErr, KindEncodeFailed, index)
		}
		logger.Warn().
			Int(log.FieldIndex, index).
			Err(runErr).
			Msg("audio normalization failed, retrying with synthesized silence")
	}

	_, runErr := p.ffmpeg.Run(ctx, normalizeArgs(input, output, pr, t, true), p.settings.NormalizeTimeout)
	if runErr != nil {
		return "", classify(runErr, KindEncodeFailed, index)
	}
	return output, nil
}
