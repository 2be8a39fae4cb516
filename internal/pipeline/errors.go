// SPDX-License-Identifier: MIT

package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clipforge/mediastudio/internal/fetch"
	"github.com/clipforge/mediastudio/internal/probe"
	"github.com/clipforge/mediastudio/internal/toolrun"
)

// Kind classifies pipeline failures so callers can present an actionable
// message without inspecting subprocess internals.
type Kind string

const (
	KindDownloadFailed    Kind = "download_failed"
	KindInvalidAsset      Kind = "invalid_asset"
	KindDurationLimit     Kind = "duration_limit_exceeded"
	KindProbeFailed       Kind = "probe_failed"
	KindEncodeFailed      Kind = "encode_failed"
	KindConcatFailed      Kind = "concat_failed"
	KindTimeout           Kind = "timeout_exceeded"
	KindUnsupportedFormat Kind = "unsupported_format"
)

// Error is the classified failure surfaced at the orchestration boundary.
// Index identifies the offending source (-1 when not tied to one input).
// Detail carries the tail of the subprocess diagnostic output, never the
// full log.
type Error struct {
	Kind   Kind
	Index  int
	Msg    string
	Detail []string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Index >= 0 {
		fmt.Fprintf(&b, " (source %d)", e.Index)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the taxonomy kind from err, or empty if err is not a
// pipeline error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func newError(kind Kind, index int, msg string) *Error {
	return &Error{Kind: kind, Index: index, Msg: msg}
}

// classify wraps an underlying stage failure with a taxonomy kind,
// preferring the more specific kinds the cause reveals (timeouts, HTTP
// status failures, empty assets) over the stage's fallback kind.
func classify(err error, fallback Kind, index int) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	e := &Error{Kind: fallback, Index: index, Err: err}

	var toErr *toolrun.TimeoutError
	if errors.As(err, &toErr) {
		e.Kind = KindTimeout
		e.Detail = toErr.StderrTail
		return e
	}

	var exitErr *toolrun.ExitError
	if errors.As(err, &exitErr) {
		e.Detail = exitErr.StderrTail
		return e
	}

	var statusErr *fetch.StatusError
	if errors.As(err, &statusErr) {
		e.Kind = KindDownloadFailed
		return e
	}
	if errors.Is(err, fetch.ErrEmpty) {
		e.Kind = KindInvalidAsset
		return e
	}

	var probeErr *probe.Error
	if errors.As(err, &probeErr) {
		e.Kind = KindProbeFailed
		if errors.As(probeErr.Err, &toErr) {
			e.Kind = KindTimeout
			e.Detail = toErr.StderrTail
		} else if errors.As(probeErr.Err, &exitErr) {
			e.Detail = exitErr.StderrTail
		}
		return e
	}

	return e
}
