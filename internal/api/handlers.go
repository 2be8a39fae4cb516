// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/mediastudio/internal/pipeline"
	"github.com/clipforge/mediastudio/internal/storage"
	"github.com/clipforge/mediastudio/internal/toolrun"
)

// Platform resize presets; explicit width/height in the request wins
// over a preset.
var resizePresets = map[string]pipeline.ResizeTarget{
	"instagram-square":   {Width: 1080, Height: 1080},
	"instagram-portrait": {Width: 1080, Height: 1350},
	"story":              {Width: 1080, Height: 1920},
	"landscape":          {Width: 1920, Height: 1080},
}

type mergeRequest struct {
	SourceURLs []string `json:"sourceUrls"`
	Resolution string   `json:"resolution"`
	Quality    string   `json:"quality"`
}

type mergeResponse struct {
	URL                  string `json:"url"`
	TotalDurationSeconds int    `json:"totalDurationSeconds"`
	IsVertical           bool   `json:"isVertical"`
	Width                int    `json:"width"`
	Height               int    `json:"height"`
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Resolution == "" {
		req.Resolution = string(pipeline.ResolutionOriginal)
	}
	if req.Quality == "" {
		req.Quality = string(pipeline.QualityDraft)
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := s.media.MergeVideos(ctx, req.SourceURLs, pipeline.MergeConfig{
		ResolutionPolicy: pipeline.ResolutionPolicy(req.Resolution),
		QualityPolicy:    pipeline.QualityPolicy(req.Quality),
	})
	if err != nil {
		writePipelineError(w, r, err)
		return
	}

	url, err := s.store.Put(ctx, objectKey("merges", "mp4"), res.Bytes, storage.ContentTypeMP4)
	if err != nil {
		writeStatus(w, http.StatusInternalServerError, fmt.Sprintf("store result: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, mergeResponse{
		URL:                  url,
		TotalDurationSeconds: res.TotalDurationSeconds,
		IsVertical:           res.IsVertical,
		Width:                res.OutputWidth,
		Height:               res.OutputHeight,
	})
}

type remixRequest struct {
	VideoURL      string `json:"videoUrl"`
	BackgroundURL string `json:"backgroundUrl"`
	MuteOriginal  bool   `json:"muteOriginal"`
	// Gains are percentages; omitted values default to unity (100).
	OriginalGainPercent *int `json:"originalGainPercent"`
	MusicGainPercent    *int `json:"musicGainPercent"`
}

type remixResponse struct {
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"durationSeconds"`
}

func (s *Server) handleRemix(w http.ResponseWriter, r *http.Request) {
	var req remixRequest
	if err := decodeJSON(r, &req); err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.VideoURL == "" {
		writeStatus(w, http.StatusBadRequest, "videoUrl is required")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := s.media.RemixAudio(ctx, req.VideoURL, pipeline.RemixConfig{
		MuteOriginal:        req.MuteOriginal,
		BackgroundURL:       req.BackgroundURL,
		OriginalGainPercent: gainOrUnity(req.OriginalGainPercent),
		MusicGainPercent:    gainOrUnity(req.MusicGainPercent),
	})
	if err != nil {
		writePipelineError(w, r, err)
		return
	}

	url, err := s.store.Put(ctx, objectKey("remixes", "mp4"), res.Bytes, storage.ContentTypeMP4)
	if err != nil {
		writeStatus(w, http.StatusInternalServerError, fmt.Sprintf("store result: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, remixResponse{URL: url, DurationSeconds: res.DurationSeconds})
}

type resizeRequest struct {
	ImageURL string `json:"imageUrl"`
	Preset   string `json:"preset"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type resizeResponse struct {
	URL            string `json:"url"`
	Format         string `json:"format"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	OriginalWidth  int    `json:"originalWidth"`
	OriginalHeight int    `json:"originalHeight"`
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req resizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ImageURL == "" {
		writeStatus(w, http.StatusBadRequest, "imageUrl is required")
		return
	}

	target := pipeline.ResizeTarget{Width: req.Width, Height: req.Height}
	if req.Width == 0 && req.Height == 0 {
		preset, ok := resizePresets[req.Preset]
		if !ok {
			writeStatus(w, http.StatusBadRequest, fmt.Sprintf("unknown preset %q", req.Preset))
			return
		}
		target = preset
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	res, err := s.media.ResizeImage(ctx, req.ImageURL, target)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}

	contentType := storage.ContentTypeJPEG
	ext := "jpg"
	if res.Format == pipeline.FormatPNG {
		contentType = storage.ContentTypePNG
		ext = "png"
	}

	url, err := s.store.Put(ctx, objectKey("resizes", ext), res.Bytes, contentType)
	if err != nil {
		writeStatus(w, http.StatusInternalServerError, fmt.Sprintf("store result: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, resizeResponse{
		URL:            url,
		Format:         string(res.Format),
		Width:          target.Width,
		Height:         target.Height,
		OriginalWidth:  res.OriginalWidth,
		OriginalHeight: res.OriginalHeight,
	})
}

// handleHealth verifies both tool binaries respond to -version.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks := map[string]toolrun.Runner{
		"ffmpeg":  s.ffmpeg,
		"ffprobe": s.ffprobe,
	}
	status := http.StatusOK
	body := map[string]string{}
	for name, runner := range checks {
		if _, err := runner.Run(ctx, []string{"-version"}, 5*time.Second); err != nil {
			body[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "ok"
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func gainOrUnity(v *int) int {
	if v == nil {
		return 100
	}
	return *v
}

// objectKey issues a unique storage key per rendered artifact.
func objectKey(prefix, ext string) string {
	return fmt.Sprintf("%s/%s.%s", prefix, uuid.NewString(), ext)
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
}
