// SPDX-License-Identifier: MIT

package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func solidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestResizeTransparentSourceStaysPNG(t *testing.T) {
	src := solidNRGBA(64, 32, color.NRGBA{R: 200, G: 10, B: 10, A: 128})
	fetcher := &fakeFetcher{data: map[string][]byte{
		"http://cdn/logo.png": encodePNG(t, src),
	}}
	p, root := newTestPipeline(t, nil, nil, fetcher)

	res, err := p.ResizeImage(context.Background(), "http://cdn/logo.png", ResizeTarget{Width: 100, Height: 100})
	require.NoError(t, err)

	assert.Equal(t, FormatPNG, res.Format)
	assert.Equal(t, 64, res.OriginalWidth)
	assert.Equal(t, 32, res.OriginalHeight)

	decoded, format, err := image.Decode(bytes.NewReader(res.Bytes))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 100, decoded.Bounds().Dy())
	assert.Empty(t, leftoverSessions(root))
}

func TestResizeOpaqueSourceBecomesJPEG(t *testing.T) {
	src := solidNRGBA(400, 300, color.NRGBA{R: 10, G: 120, B: 200, A: 255})
	fetcher := &fakeFetcher{data: map[string][]byte{
		"http://cdn/photo.jpg": encodeJPEG(t, src),
	}}
	p, _ := newTestPipeline(t, nil, nil, fetcher)

	res, err := p.ResizeImage(context.Background(), "http://cdn/photo.jpg", ResizeTarget{Width: 160, Height: 90})
	require.NoError(t, err)

	assert.Equal(t, FormatJPEG, res.Format)

	decoded, format, err := image.Decode(bytes.NewReader(res.Bytes))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 160, decoded.Bounds().Dx())
	assert.Equal(t, 90, decoded.Bounds().Dy())
}

// An opaque PNG has no transparency to preserve, so it re-encodes as
// JPEG.
func TestResizeOpaquePNGBecomesJPEG(t *testing.T) {
	src := solidNRGBA(50, 50, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	fetcher := &fakeFetcher{data: map[string][]byte{
		"http://cdn/flat.png": encodePNG(t, src),
	}}
	p, _ := newTestPipeline(t, nil, nil, fetcher)

	res, err := p.ResizeImage(context.Background(), "http://cdn/flat.png", ResizeTarget{Width: 40, Height: 40})
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, res.Format)
}

// Cover fit crops rather than letterboxes: a wide source into a square
// target must fill the full square.
func TestResizeCoverFitCropsWideSource(t *testing.T) {
	src := solidNRGBA(300, 100, color.NRGBA{R: 255, A: 255})
	fetcher := &fakeFetcher{data: map[string][]byte{
		"http://cdn/wide.png": encodePNG(t, src),
	}}
	p, _ := newTestPipeline(t, nil, nil, fetcher)

	res, err := p.ResizeImage(context.Background(), "http://cdn/wide.png", ResizeTarget{Width: 80, Height: 80})
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(res.Bytes))
	require.NoError(t, err)
	assert.Equal(t, 80, decoded.Bounds().Dx())
	assert.Equal(t, 80, decoded.Bounds().Dy())
}

// Resizing the same source to the same target twice is deterministic:
// identical bytes and identical metadata.
func TestResizeIsDeterministic(t *testing.T) {
	src := solidNRGBA(200, 150, color.NRGBA{R: 33, G: 66, B: 99, A: 255})
	fetcher := &fakeFetcher{data: map[string][]byte{
		"http://cdn/photo.jpg": encodeJPEG(t, src),
	}}
	p, _ := newTestPipeline(t, nil, nil, fetcher)

	first, err := p.ResizeImage(context.Background(), "http://cdn/photo.jpg", ResizeTarget{Width: 100, Height: 100})
	require.NoError(t, err)
	second, err := p.ResizeImage(context.Background(), "http://cdn/photo.jpg", ResizeTarget{Width: 100, Height: 100})
	require.NoError(t, err)

	assert.Equal(t, first.Bytes, second.Bytes)
	assert.Equal(t, first.Format, second.Format)
	assert.Equal(t, first.OriginalWidth, second.OriginalWidth)
	assert.Equal(t, first.OriginalHeight, second.OriginalHeight)
}

func TestResizeRejectsGarbage(t *testing.T) {
	fetcher := &fakeFetcher{data: map[string][]byte{
		"http://cdn/not-an-image": []byte("plain text, not pixels"),
	}}
	p, root := newTestPipeline(t, nil, nil, fetcher)

	_, err := p.ResizeImage(context.Background(), "http://cdn/not-an-image", ResizeTarget{Width: 10, Height: 10})
	assert.Equal(t, KindUnsupportedFormat, KindOf(err))
	assert.Empty(t, leftoverSessions(root))
}

func TestResizeRejectsNonPositiveTarget(t *testing.T) {
	p, _ := newTestPipeline(t, nil, nil, nil)

	_, err := p.ResizeImage(context.Background(), "http://cdn/a.png", ResizeTarget{Width: 0, Height: 100})
	assert.Equal(t, KindInvalidAsset, KindOf(err))

	_, err = p.ResizeImage(context.Background(), "http://cdn/a.png", ResizeTarget{Width: 100, Height: -1})
	assert.Equal(t, KindInvalidAsset, KindOf(err))
}

func TestResizeDownloadFailure(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{
		"http://cdn/missing.png": assert.AnError,
	}}
	p, root := newTestPipeline(t, nil, nil, fetcher)

	_, err := p.ResizeImage(context.Background(), "http://cdn/missing.png", ResizeTarget{Width: 10, Height: 10})
	assert.Equal(t, KindDownloadFailed, KindOf(err))
	assert.Empty(t, leftoverSessions(root))
}
