// SPDX-License-Identifier: MIT

// Package procgroup spawns external tools in their own process group so the
// whole tree (encoder plus any children it forks) can be reaped together.
package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
	"time"
)

// ErrKillFailed is returned when a process group survives SIGKILL.
var ErrKillFailed = errors.New("kill operation failed")

// Terminate attempts to gracefully stop a process group. It sends SIGTERM,
// waits for the process to exit (via the provided wait channel), and if it
// does not exit within grace, sends SIGKILL. It consumes and returns the
// error from waitCh. Safe to call on nil commands.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	_ = Kill(cmd, syscall.SIGTERM)

	if grace <= 0 {
		grace = 5 * time.Second
	}

	select {
	case err := <-waitCh:
		return err
	case <-time.After(grace):
	}

	_ = Kill(cmd, syscall.SIGKILL)

	select {
	case err := <-waitCh:
		return err
	case <-time.After(grace):
		return ErrKillFailed
	}
}
