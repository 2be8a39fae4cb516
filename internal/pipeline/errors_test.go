// SPDX-License-Identifier: MIT

package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/mediastudio/internal/fetch"
	"github.com/clipforge/mediastudio/internal/probe"
	"github.com/clipforge/mediastudio/internal/toolrun"
)

func TestClassifyTimeout(t *testing.T) {
	cause := &toolrun.TimeoutError{Tool: "ffmpeg", After: 2 * time.Minute, StderrTail: []string{"frame=999"}}

	pe := classify(cause, KindEncodeFailed, 3)
	assert.Equal(t, KindTimeout, pe.Kind)
	assert.Equal(t, 3, pe.Index)
	assert.Equal(t, []string{"frame=999"}, pe.Detail)
}

func TestClassifyExitCarriesStderrTail(t *testing.T) {
	cause := &toolrun.ExitError{Tool: "ffmpeg", ExitCode: 1, StderrTail: []string{"moov atom not found"}}

	pe := classify(cause, KindEncodeFailed, 0)
	assert.Equal(t, KindEncodeFailed, pe.Kind)
	assert.Equal(t, []string{"moov atom not found"}, pe.Detail)
}

func TestClassifyFetchFailures(t *testing.T) {
	pe := classify(&fetch.StatusError{URL: "http://x", StatusCode: 404}, KindEncodeFailed, 1)
	assert.Equal(t, KindDownloadFailed, pe.Kind)

	pe = classify(fmt.Errorf("fetch: %w", fetch.ErrEmpty), KindDownloadFailed, 2)
	assert.Equal(t, KindInvalidAsset, pe.Kind)
	assert.Equal(t, 2, pe.Index)
}

func TestClassifyProbeFailure(t *testing.T) {
	pe := classify(&probe.Error{Path: "x", Err: assert.AnError}, KindEncodeFailed, 0)
	assert.Equal(t, KindProbeFailed, pe.Kind)

	// A timeout inside the probe still surfaces as a timeout.
	pe = classify(&probe.Error{Path: "x", Err: &toolrun.TimeoutError{Tool: "ffprobe"}}, KindEncodeFailed, 0)
	assert.Equal(t, KindTimeout, pe.Kind)
}

func TestClassifyPassesThroughPipelineError(t *testing.T) {
	orig := newError(KindDurationLimit, -1, "too long")

	pe := classify(fmt.Errorf("stage: %w", orig), KindEncodeFailed, 5)
	assert.Same(t, orig, pe)
}

func TestErrorString(t *testing.T) {
	e := &Error{Kind: KindDownloadFailed, Index: 1, Err: assert.AnError}
	assert.Contains(t, e.Error(), "download_failed")
	assert.Contains(t, e.Error(), "source 1")

	e = newError(KindDurationLimit, -1, "total duration 301s exceeds the 300s limit")
	assert.NotContains(t, e.Error(), "source")
	assert.Contains(t, e.Error(), "301s")
}

func TestKindOf(t *testing.T) {
	require.Equal(t, Kind(""), KindOf(nil))
	require.Equal(t, Kind(""), KindOf(assert.AnError))
	require.Equal(t, KindTimeout, KindOf(fmt.Errorf("wrapped: %w", newError(KindTimeout, -1, ""))))
}
