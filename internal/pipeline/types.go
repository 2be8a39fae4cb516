// SPDX-License-Identifier: MIT

package pipeline

import "fmt"

// ResolutionPolicy controls the merge output resolution. 720p and 1080p
// only ever downscale; sources already within the bound keep their
// native dimensions.
type ResolutionPolicy string

const (
	ResolutionOriginal ResolutionPolicy = "original"
	Resolution720p     ResolutionPolicy = "720p"
	Resolution1080p    ResolutionPolicy = "1080p"
)

// QualityPolicy names the speed/quality tradeoff for re-encodes. The
// encoder-specific preset/CRF mapping lives in normalize.go.
type QualityPolicy string

const (
	QualityDraft QualityPolicy = "draft"
	QualityHigh  QualityPolicy = "high"
)

// MergeConfig is the per-merge value object.
type MergeConfig struct {
	ResolutionPolicy ResolutionPolicy
	QualityPolicy    QualityPolicy
}

// Validate rejects unknown policy names before any work starts.
func (c MergeConfig) Validate() error {
	switch c.ResolutionPolicy {
	case ResolutionOriginal, Resolution720p, Resolution1080p:
	default:
		return fmt.Errorf("unknown resolution policy %q", c.ResolutionPolicy)
	}
	switch c.QualityPolicy {
	case QualityDraft, QualityHigh:
	default:
		return fmt.Errorf("unknown quality policy %q", c.QualityPolicy)
	}
	return nil
}

// RemixConfig is the per-remix value object. Gains are percentages where
// 100 is unity; the valid range is [0, 200].
type RemixConfig struct {
	MuteOriginal        bool
	BackgroundURL       string
	OriginalGainPercent int
	MusicGainPercent    int
}

// Validate rejects out-of-range gain values.
func (c RemixConfig) Validate() error {
	if c.OriginalGainPercent < 0 || c.OriginalGainPercent > 200 {
		return fmt.Errorf("original gain %d outside [0,200]", c.OriginalGainPercent)
	}
	if c.MusicGainPercent < 0 || c.MusicGainPercent > 200 {
		return fmt.Errorf("music gain %d outside [0,200]", c.MusicGainPercent)
	}
	return nil
}

// ResizeTarget is the per-resize value object. Both dimensions must be
// positive.
type ResizeTarget struct {
	Width  int
	Height int
}

// Validate rejects non-positive dimensions.
func (t ResizeTarget) Validate() error {
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("target dimensions %dx%d must be positive", t.Width, t.Height)
	}
	return nil
}

// MergeResult is the merge output; ownership of Bytes transfers to the
// caller.
type MergeResult struct {
	Bytes                []byte
	TotalDurationSeconds int
	IsVertical           bool
	OutputWidth          int
	OutputHeight         int
}

// RemixResult is the audio-remix output.
type RemixResult struct {
	Bytes           []byte
	DurationSeconds float64
}

// ImageFormat names the resize output encoding.
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
)

// ResizeResult is the image-resize output.
type ResizeResult struct {
	Bytes          []byte
	Format         ImageFormat
	OriginalWidth  int
	OriginalHeight int
}
