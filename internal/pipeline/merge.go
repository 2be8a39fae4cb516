// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clipforge/mediastudio/internal/log"
	"github.com/clipforge/mediastudio/internal/metrics"
	"github.com/clipforge/mediastudio/internal/probe"
	"github.com/clipforge/mediastudio/internal/session"
)

// MergeVideos downloads the given sources, normalizes each clip to a
// common shape and stream-copy concatenates them in input order. Any
// stage failure aborts the whole merge; the work session is always
// cleaned up.
func (p *Pipeline) MergeVideos(ctx context.Context, sourceURLs []string, cfg MergeConfig) (MergeResult, error) {
	start := time.Now()
	res, err := p.mergeVideos(ctx, sourceURLs, cfg)
	metrics.ObserveOp("merge", start, string(KindOf(err)))
	return res, err
}

func (p *Pipeline) mergeVideos(ctx context.Context, sourceURLs []string, cfg MergeConfig) (MergeResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.merge")
	defer span.End()

	if len(sourceURLs) < 2 {
		return MergeResult{}, newError(KindInvalidAsset, -1, fmt.Sprintf("merge requires at least 2 sources, got %d", len(sourceURLs)))
	}
	if err := cfg.Validate(); err != nil {
		return MergeResult{}, &Error{Kind: KindInvalidAsset, Index: -1, Err: err}
	}

	sess, err := session.Open(p.workRoot)
	if err != nil {
		return MergeResult{}, classify(err, KindEncodeFailed, -1)
	}
	defer sess.Close()
	ctx = log.ContextWithJobID(ctx, sess.ID())
	logger := log.WithComponentFromContext(ctx, "merge")

	inputs, err := p.downloadSources(ctx, sess, sourceURLs)
	if err != nil {
		return MergeResult{}, err
	}

	probes := make([]probe.Result, len(inputs))
	var total float64
	for i, path := range inputs {
		pr, err := p.prober.Probe(ctx, path)
		if err != nil {
			return MergeResult{}, classify(err, KindProbeFailed, i)
		}
		probes[i] = pr
		total += pr.DurationSeconds
	}

	limit := p.settings.MaxTotalDuration.Seconds()
	if total > limit {
		return MergeResult{}, newError(KindDurationLimit, -1,
			fmt.Sprintf("total duration %.0fs exceeds the %.0fs limit", total, limit))
	}

	vertical := classifyOrientation(probes)
	width, height := outputResolution(cfg.ResolutionPolicy, probes[0], vertical)
	target := normTarget{width: width, height: height, quality: cfg.QualityPolicy}

	logger.Info().
		Int("clips", len(inputs)).
		Float64(log.FieldDuration, total).
		Bool("vertical", vertical).
		Str(log.FieldResolution, fmt.Sprintf("%dx%d", width, height)).
		Msg("merge plan ready")

	// Clips have no cross-dependency, so normalization runs in parallel;
	// the results slice re-serializes them in input order for concat.
	normalized := make([]string, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.settings.NormalizeParallelism)
	for i := range inputs {
		g.Go(func() error {
			out, err := p.normalizeClip(gctx, sess, i, inputs[i], probes[i], target)
			if err != nil {
				return err
			}
			normalized[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return MergeResult{}, classify(err, KindEncodeFailed, -1)
	}

	merged, err := p.concatClips(ctx, sess, normalized)
	if err != nil {
		return MergeResult{}, err
	}

	data, err := os.ReadFile(merged) // #nosec G304 -- session-confined path
	if err != nil {
		return MergeResult{}, classify(fmt.Errorf("read merged output: %w", err), KindConcatFailed, -1)
	}
	metrics.OutputBytes.WithLabelValues("merge").Observe(float64(len(data)))

	return MergeResult{
		Bytes:                data,
		TotalDurationSeconds: int(math.Round(total)),
		IsVertical:           vertical,
		OutputWidth:          width,
		OutputHeight:         height,
	}, nil
}

// downloadSources fetches every source into the session and rejects any
// empty or unfetchable asset with a per-index classified error.
func (p *Pipeline) downloadSources(ctx context.Context, sess *session.Session, urls []string) ([]string, error) {
	paths := make([]string, len(urls))
	for i, url := range urls {
		dst, err := sess.Path(fmt.Sprintf("src-%03d", i))
		if err != nil {
			return nil, classify(err, KindDownloadFailed, i)
		}
		if _, err := p.fetcher.Fetch(ctx, url, dst); err != nil {
			return nil, classify(err, KindDownloadFailed, i)
		}
		paths[i] = dst
	}
	return paths, nil
}

// classifyOrientation applies majority rule over the probed clips. A tie
// deliberately falls back to horizontal.
func classifyOrientation(probes []probe.Result) bool {
	vertical := 0
	for _, pr := range probes {
		if pr.IsVertical() {
			vertical++
		}
	}
	return vertical > len(probes)-vertical
}

// outputResolution derives the merge target frame from the first clip and
// the policy. Bounded policies only ever downscale: a source already
// within the bound keeps its native (even-aligned) dimensions.
func outputResolution(policy ResolutionPolicy, first probe.Result, vertical bool) (int, int) {
	width, height := evenDim(first.Width), evenDim(first.Height)

	var boundW, boundH int
	switch policy {
	case Resolution720p:
		boundW, boundH = 1280, 720
	case Resolution1080p:
		boundW, boundH = 1920, 1080
	default:
		return width, height
	}
	if vertical {
		boundW, boundH = boundH, boundW
	}

	if width > boundW || height > boundH {
		return boundW, boundH
	}
	return width, height
}

// evenDim rounds down to an even value; yuv420p subsampling requires even
// frame dimensions.
func evenDim(v int) int {
	return v &^ 1
}
