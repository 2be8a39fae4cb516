// SPDX-License-Identifier: MIT

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/disintegration/imaging"

	"github.com/clipforge/mediastudio/internal/log"
	"github.com/clipforge/mediastudio/internal/metrics"
	"github.com/clipforge/mediastudio/internal/session"
)

const jpegQuality = 92

// ResizeImage downloads an image and resizes it to the target frame with
// cover fit: scale to fill, crop the overflow, centered. Images are never
// letterboxed. Output format follows alpha presence: PNG when the source
// carries transparency, JPEG otherwise.
func (p *Pipeline) ResizeImage(ctx context.Context, imageURL string, target ResizeTarget) (ResizeResult, error) {
	start := time.Now()
	res, err := p.resizeImage(ctx, imageURL, target)
	metrics.ObserveOp("resize", start, string(KindOf(err)))
	return res, err
}

func (p *Pipeline) resizeImage(ctx context.Context, imageURL string, target ResizeTarget) (ResizeResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.resize")
	defer span.End()

	if err := target.Validate(); err != nil {
		return ResizeResult{}, &Error{Kind: KindInvalidAsset, Index: -1, Err: err}
	}

	sess, err := session.Open(p.workRoot)
	if err != nil {
		return ResizeResult{}, classify(err, KindEncodeFailed, -1)
	}
	defer sess.Close()
	ctx = log.ContextWithJobID(ctx, sess.ID())

	srcPath, err := sess.Path("image")
	if err != nil {
		return ResizeResult{}, classify(err, KindEncodeFailed, -1)
	}
	if _, err := p.fetcher.Fetch(ctx, imageURL, srcPath); err != nil {
		return ResizeResult{}, classify(err, KindDownloadFailed, 0)
	}

	src, err := decodeImage(srcPath)
	if err != nil {
		return ResizeResult{}, err
	}

	bounds := src.Bounds()
	format := FormatJPEG
	if hasAlpha(src) {
		format = FormatPNG
	}

	resized := imaging.Fill(src, target.Width, target.Height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		err = imaging.Encode(&buf, resized, imaging.PNG)
	default:
		err = imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality))
	}
	if err != nil {
		return ResizeResult{}, classify(fmt.Errorf("encode %s: %w", format, err), KindEncodeFailed, -1)
	}
	metrics.OutputBytes.WithLabelValues("resize").Observe(float64(buf.Len()))

	logger := log.WithComponentFromContext(ctx, "resize")
	logger.Info().
		Str("format", string(format)).
		Str(log.FieldResolution, fmt.Sprintf("%dx%d", target.Width, target.Height)).
		Msg("image resized")

	return ResizeResult{
		Bytes:          buf.Bytes(),
		Format:         format,
		OriginalWidth:  bounds.Dx(),
		OriginalHeight: bounds.Dy(),
	}, nil
}

// decodeImage decodes the downloaded file, classifying unreadable inputs
// as corrupt and unregistered encodings as unsupported.
func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path) // #nosec G304 -- session-confined path
	if err != nil {
		return nil, classify(fmt.Errorf("open image: %w", err), KindInvalidAsset, 0)
	}
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, &Error{Kind: KindUnsupportedFormat, Index: 0, Err: err}
		}
		return nil, &Error{Kind: KindInvalidAsset, Index: 0, Err: err}
	}
	return img, nil
}

// hasAlpha reports whether the decoded image carries any transparency.
// Decoded JPEGs report opaque; PNGs with an alpha channel report their
// actual pixel state.
func hasAlpha(img image.Image) bool {
	type opaquer interface{ Opaque() bool }
	if o, ok := img.(opaquer); ok {
		return !o.Opaque()
	}
	return false
}
