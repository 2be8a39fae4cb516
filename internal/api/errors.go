// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clipforge/mediastudio/internal/log"
	"github.com/clipforge/mediastudio/internal/pipeline"
)

// errorResponse is the uniform error body. Detail carries the stderr
// tail of the failing tool when one exists; Source names the offending
// input index when the failure is tied to one.
type errorResponse struct {
	Error  string   `json:"error"`
	Source *int     `json:"source,omitempty"`
	Detail []string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

// writePipelineError maps the taxonomy kind to an HTTP status. Caller
// mistakes are 4xx, upstream asset problems 502, our own failures 5xx.
func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	var pe *pipeline.Error
	if errors.As(err, &pe) {
		resp.Error = string(pe.Kind)
		resp.Detail = pe.Detail
		if pe.Index >= 0 {
			idx := pe.Index
			resp.Source = &idx
		}
		switch pe.Kind {
		case pipeline.KindInvalidAsset, pipeline.KindUnsupportedFormat, pipeline.KindDurationLimit:
			status = http.StatusUnprocessableEntity
		case pipeline.KindDownloadFailed:
			status = http.StatusBadGateway
		case pipeline.KindTimeout:
			status = http.StatusGatewayTimeout
		}
	}

	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Warn().
		Err(err).
		Int("status", status).
		Msg("pipeline request failed")
	writeJSON(w, status, resp)
}
