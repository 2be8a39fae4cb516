// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveProbeBin returns the effective ffprobe binary path.
//
// Resolution order:
// 1) Explicit ffprobeBin (MEDIASTUDIO_FFPROBE_BIN)
// 2) Derive from ffmpegBin (.../ffmpeg -> .../ffprobe) if that file exists
// 3) "ffprobe" (PATH resolution)
func ResolveProbeBin(ffprobeBin, ffmpegBin string) string {
	return resolveProbeBinWithStat(ffprobeBin, ffmpegBin, os.Stat)
}

func resolveProbeBinWithStat(ffprobeBin, ffmpegBin string, stat func(string) (os.FileInfo, error)) string {
	ffprobeBin = strings.TrimSpace(ffprobeBin)
	if ffprobeBin != "" {
		return ffprobeBin
	}

	// Only derive from a concrete ffmpeg path. A bare "ffmpeg" resolves
	// through PATH and so does its sibling.
	ffmpegBin = strings.TrimSpace(ffmpegBin)
	if strings.ContainsRune(ffmpegBin, '/') && filepath.Base(ffmpegBin) == "ffmpeg" {
		candidate := filepath.Join(filepath.Dir(ffmpegBin), "ffprobe")
		if fi, err := stat(candidate); err == nil && fi != nil && !fi.IsDir() {
			return candidate
		}
	}
	return "ffprobe"
}
