// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package procgroup starts external tools in their own process group so a
// whole tool tree (yt-dlp and the ffmpeg it spawns) can be stopped together.
package procgroup

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/ManuGH/ytaudio/internal/log"
	"github.com/ManuGH/ytaudio/internal/metrics"
)

// Terminate stops the process group of cmd. It sends SIGTERM, waits for the
// process to exit via waitCh, and escalates to SIGKILL once grace elapses.
// The result of waitCh is always consumed and returned.
// It is safe to call on nil commands (returns nil).
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid

	log.L().Debug().Int(log.FieldPID, pid).Msg("sending SIGTERM to process group")
	metrics.IncProcTerminate("SIGTERM", signalOutcome(Kill(cmd, syscall.SIGTERM)))

	select {
	case err := <-waitCh:
		return err
	case <-time.After(grace):
	}

	log.L().Warn().Int(log.FieldPID, pid).Dur("grace", grace).
		Msg("SIGTERM grace period exceeded, sending SIGKILL to process group")
	metrics.IncProcTerminate("SIGKILL", signalOutcome(Kill(cmd, syscall.SIGKILL)))

	return <-waitCh
}

func signalOutcome(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return "esrch"
	default:
		return "error"
	}
}
