// SPDX-License-Identifier: MIT

package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/mediastudio/internal/toolrun"
)

type fakeRunner struct {
	stdout []byte
	err    error
	args   []string
}

func (f *fakeRunner) Run(_ context.Context, args []string, _ time.Duration) (toolrun.Result, error) {
	f.args = args
	if f.err != nil {
		return toolrun.Result{ExitCode: 1}, f.err
	}
	return toolrun.Result{Stdout: f.stdout}, nil
}

const fullOutput = `{
  "streams": [
    {"codec_type": "video", "width": 1920, "height": 1080, "duration": "5.000000"},
    {"codec_type": "audio", "duration": "5.000000"}
  ],
  "format": {"duration": "5.033000"}
}`

const noAudioVertical = `{
  "streams": [
    {"codec_type": "video", "width": 1080, "height": 1920, "duration": "3.0"}
  ],
  "format": {"duration": "3.0"}
}`

const noFormatDuration = `{
  "streams": [
    {"codec_type": "video", "width": 640, "height": 480, "duration": "12.5"}
  ],
  "format": {}
}`

func TestProbeParsesStreams(t *testing.T) {
	runner := &fakeRunner{stdout: []byte(fullOutput)}
	p := New(runner, time.Second)

	res, err := p.Probe(context.Background(), "/tmp/in.mp4")
	require.NoError(t, err)
	assert.InDelta(t, 5.033, res.DurationSeconds, 0.001)
	assert.Equal(t, 1920, res.Width)
	assert.Equal(t, 1080, res.Height)
	assert.True(t, res.HasAudio)
	assert.False(t, res.IsVertical())

	assert.Contains(t, runner.args, "-show_streams")
	assert.Contains(t, runner.args, "/tmp/in.mp4")
}

func TestProbeNoAudio(t *testing.T) {
	p := New(&fakeRunner{stdout: []byte(noAudioVertical)}, time.Second)

	res, err := p.Probe(context.Background(), "/tmp/clip.mp4")
	require.NoError(t, err)
	assert.False(t, res.HasAudio)
	assert.True(t, res.IsVertical())
}

func TestProbeFormatDurationFallback(t *testing.T) {
	p := New(&fakeRunner{stdout: []byte(noFormatDuration)}, time.Second)

	res, err := p.Probe(context.Background(), "/tmp/clip.mp4")
	require.NoError(t, err)
	assert.InDelta(t, 12.5, res.DurationSeconds, 0.001)
}

func TestProbeSubprocessFailure(t *testing.T) {
	toolErr := &toolrun.ExitError{Tool: "ffprobe", ExitCode: 1, StderrTail: []string{"Invalid data"}}
	p := New(&fakeRunner{err: toolErr}, time.Second)

	_, err := p.Probe(context.Background(), "/tmp/bad.mp4")
	require.Error(t, err)

	var probeErr *Error
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, "/tmp/bad.mp4", probeErr.Path)
	assert.True(t, errors.Is(err, toolErr) || errors.As(err, &toolErr))
}

func TestProbeGarbageOutput(t *testing.T) {
	p := New(&fakeRunner{stdout: []byte("not json")}, time.Second)

	_, err := p.Probe(context.Background(), "/tmp/odd.mp4")
	var probeErr *Error
	require.ErrorAs(t, err, &probeErr)
}

func TestProbeNoStreams(t *testing.T) {
	p := New(&fakeRunner{stdout: []byte(`{"streams":[],"format":{}}`)}, time.Second)

	_, err := p.Probe(context.Background(), "/tmp/empty.bin")
	assert.Error(t, err)
}
