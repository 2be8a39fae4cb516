// SPDX-License-Identifier: MIT

package pipeline

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/clipforge/mediastudio/internal/probe"
)

func TestPresetForQuality(t *testing.T) {
	preset, crf := presetForQuality(QualityDraft)
	assert.Equal(t, "veryfast", preset)
	assert.Equal(t, 26, crf)

	preset, crf = presetForQuality(QualityHigh)
	assert.Equal(t, "slow", preset)
	assert.Equal(t, 18, crf)
}

func TestVideoFilterShape(t *testing.T) {
	f := videoFilter(normTarget{width: 1280, height: 720})
	assert.Equal(t,
		"scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2,fps=30,format=yuv420p",
		f)
}

func TestNormalizeArgsWithAudio(t *testing.T) {
	pr := probe.Result{DurationSeconds: 5, HasAudio: true}
	args := normalizeArgs("in.mp4", "out.ts", pr, normTarget{width: 1920, height: 1080, quality: QualityHigh}, false)
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "loudnorm=I=-16:TP=-1.5:LRA=11")
	assert.Contains(t, joined, "aresample=44100")
	assert.Contains(t, joined, "channel_layouts=stereo")
	assert.Contains(t, joined, "-preset slow")
	assert.Contains(t, joined, "-crf 18")
	assert.Contains(t, joined, "-f mpegts")
	assert.NotContains(t, joined, "anullsrc")
	assert.Equal(t, "out.ts", args[len(args)-1])
}

func TestNormalizeArgsSilent(t *testing.T) {
	pr := probe.Result{DurationSeconds: 3.25, HasAudio: false}
	args := normalizeArgs("in.mp4", "out.ts", pr, normTarget{width: 1280, height: 720, quality: QualityDraft}, true)

	want := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", "in.mp4",
		"-f", "lavfi",
		"-t", "3.250",
		"-i", "anullsrc=channel_layout=stereo:sample_rate=44100",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest",
		"-vf", "scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2,fps=30,format=yuv420p",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "26",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "44100",
		"-ac", "2",
		"-f", "mpegts",
		"out.ts",
	}
	if diff := cmp.Diff(want, args); diff != "" {
		t.Fatalf("silent normalize args mismatch (-want +got):\n%s", diff)
	}
}

func TestConcatManifest(t *testing.T) {
	m := concatManifest([]string{"/tmp/a.ts", "/tmp/it's.ts"})
	assert.Equal(t, "file '/tmp/a.ts'\nfile '/tmp/it'\\''s.ts'\n", m)
}

func TestEvenDim(t *testing.T) {
	assert.Equal(t, 1920, evenDim(1921))
	assert.Equal(t, 1920, evenDim(1920))
	assert.Equal(t, 0, evenDim(1))
}
