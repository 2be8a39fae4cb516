// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldSessionID = "session_id"

	// Process / pipeline fields
	FieldComponent = "component"
	FieldStage     = "stage"
	FieldTool      = "tool"
	FieldExitCode  = "exit_code"

	// Media fields
	FieldSource     = "source"
	FieldIndex      = "index"
	FieldDuration   = "duration_s"
	FieldResolution = "resolution"

	// Path / URL fields
	FieldPath = "path"
	FieldURL  = "url"
)
