// SPDX-License-Identifier: MIT

// Package toolrun provides a uniform way to invoke external media tools
// (ffmpeg, ffprobe): start the process in its own group, buffer stdout,
// capture a bounded tail of stderr, enforce a wall-clock timeout, and
// resolve exactly once with the exit status.
package toolrun

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/clipforge/mediastudio/internal/log"
	"github.com/clipforge/mediastudio/internal/procgroup"
)

var (
	startTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediastudio_tool_start_total",
		Help: "Total number of external tool process starts",
	}, []string{"tool", "result"})

	exitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediastudio_tool_exit_total",
		Help: "Total number of external tool process exits",
	}, []string{"tool", "reason"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mediastudio_tool_run_duration_seconds",
		Help:    "Wall-clock duration of external tool invocations",
		Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 14), // 50ms to ~6m
	}, []string{"tool"})
)

// stderrTailLines is how many stderr lines are attached to failures.
// Full logs are never surfaced to callers.
const stderrTailLines = 20

// Result describes a completed tool invocation.
type Result struct {
	ExitCode int
	Stdout   []byte
	Duration time.Duration
}

// ExitError reports a tool that ran to completion with a non-zero status.
type ExitError struct {
	Tool       string
	ExitCode   int
	StderrTail []string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.ExitCode, strings.Join(e.StderrTail, "; "))
}

// TimeoutError reports a tool that was forcibly terminated because it
// exceeded its wall-clock budget. Distinct from an encode failure.
type TimeoutError struct {
	Tool       string
	After      time.Duration
	StderrTail []string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Tool, e.After)
}

// Runner executes external tool invocations. Stages depend on this
// interface so tests can substitute fakes.
type Runner interface {
	Run(ctx context.Context, args []string, timeout time.Duration) (Result, error)
}

// Tool is the production Runner bound to one executable path, resolved
// once at process start.
type Tool struct {
	bin  string
	name string

	killGrace time.Duration
}

// New creates a Tool for the given binary path. name is a short label used
// in logs and metrics (e.g. "ffmpeg").
func New(name, bin string) *Tool {
	if bin == "" {
		bin = name
	}
	return &Tool{
		bin:       bin,
		name:      name,
		killGrace: 5 * time.Second,
	}
}

// Run starts the tool, waits for completion and returns its buffered stdout.
// A non-zero exit yields *ExitError; exceeding timeout yields *TimeoutError
// after the process group has been terminated. Context cancellation also
// terminates the process group.
func (t *Tool) Run(ctx context.Context, args []string, timeout time.Duration) (Result, error) {
	logger := log.WithComponentFromContext(ctx, "toolrun")

	cmd := exec.Command(t.bin, args...) // #nosec G204 -- args are built internally, never from shell input
	procgroup.Set(cmd)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	ring := NewLineRing(256)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}

	var ioWg sync.WaitGroup
	ioWg.Add(1)
	go func() {
		defer ioWg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			_, _ = ring.Write(scanner.Bytes())
			_, _ = ring.Write([]byte("\n"))
		}
	}()

	start := time.Now()
	if err := cmd.Start(); err != nil {
		startTotal.WithLabelValues(t.name, "error").Inc()
		return Result{}, fmt.Errorf("%s start failed: %w", t.name, err)
	}
	startTotal.WithLabelValues(t.name, "ok").Inc()
	logger.Debug().Str(log.FieldTool, t.name).Str("command", cmd.String()).Msg("starting tool process")

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	var waitErr error
	reason := "clean"

	select {
	case waitErr = <-waitCh:
		if waitErr != nil {
			reason = "error"
		}
	case <-timeoutCh:
		reason = "timeout"
		waitErr = procgroup.Terminate(cmd, waitCh, t.killGrace)
	case <-ctx.Done():
		reason = "ctx_cancel"
		waitErr = procgroup.Terminate(cmd, waitCh, t.killGrace)
	}

	ioWg.Wait()
	elapsed := time.Since(start)
	runDuration.WithLabelValues(t.name).Observe(elapsed.Seconds())
	exitTotal.WithLabelValues(t.name, reason).Inc()

	res := Result{
		ExitCode: exitCode(cmd, waitErr),
		Stdout:   stdout.Bytes(),
		Duration: elapsed,
	}

	switch reason {
	case "timeout":
		logger.Error().
			Str(log.FieldTool, t.name).
			Dur("timeout", timeout).
			Strs("stderr", ring.LastN(stderrTailLines)).
			Msg("tool exceeded wall-clock budget, process group terminated")
		return res, &TimeoutError{Tool: t.name, After: timeout, StderrTail: ring.LastN(stderrTailLines)}
	case "ctx_cancel":
		return res, ctx.Err()
	}

	if waitErr != nil {
		tail := ring.LastN(stderrTailLines)
		logger.Error().
			Str(log.FieldTool, t.name).
			Int(log.FieldExitCode, res.ExitCode).
			Strs("stderr", tail).
			Msg("tool exited non-zero")
		return res, &ExitError{Tool: t.name, ExitCode: res.ExitCode, StderrTail: tail}
	}

	return res, nil
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
