// SPDX-License-Identifier: MIT

package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/clipforge/mediastudio/internal/session"
)

// concatManifest renders the concat demuxer input list. Paths are quoted;
// single quotes inside a path use the demuxer's escape form.
func concatManifest(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		escaped := strings.ReplaceAll(p, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	return b.String()
}

// concatClips stream-copies the ordered normalized intermediates into the
// final MP4 with fast-start metadata placement. Inputs are homogeneous by
// construction, so no re-encode happens and output order equals manifest
// order.
func (p *Pipeline) concatClips(ctx context.Context, sess *session.Session, paths []string) (string, error) {
	manifest, err := sess.Path("concat.txt")
	if err != nil {
		return "", classify(err, KindConcatFailed, -1)
	}
	if err := os.WriteFile(manifest, []byte(concatManifest(paths)), 0o600); err != nil {
		return "", classify(fmt.Errorf("write concat manifest: %w", err), KindConcatFailed, -1)
	}

	output, err := sess.Path("merged.mp4")
	if err != nil {
		return "", classify(err, KindConcatFailed, -1)
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		"-movflags", "+faststart",
		output,
	}

	if _, err := p.ffmpeg.Run(ctx, args, p.settings.ConcatTimeout); err != nil {
		return "", classify(err, KindConcatFailed, -1)
	}
	return output, nil
}
