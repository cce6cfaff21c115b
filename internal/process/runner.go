// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package process runs external command-line tools with a deadline, merged
// output capture and whole-process-group termination.
package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ManuGH/ytaudio/internal/log"
	"github.com/ManuGH/ytaudio/internal/metrics"
	"github.com/ManuGH/ytaudio/internal/procgroup"
)

const (
	defaultGrace        = 3 * time.Second
	defaultDrain        = 2 * time.Second
	defaultMaxLines     = 256
	defaultMaxLineBytes = 64 * 1024
)

// Spec describes one invocation. Args[0] is the executable.
type Spec struct {
	Args    []string
	Dir     string
	Env     []string // appended to the inherited environment
	Timeout time.Duration

	// Capture bounds. Lines beyond MaxLineBytes are truncated, and only the
	// last MaxLines lines are kept.
	MaxLines     int
	MaxLineBytes int

	// OnLine, if set, sees every output line as it is read.
	OnLine func(line string)
}

// Outcome is the observable result of a run.
type Outcome struct {
	ExitCode int
	Output   string
	TimedOut bool
	Duration time.Duration
}

// Executor runs external commands. *Runner is the production implementation.
type Executor interface {
	Run(ctx context.Context, spec Spec) (Outcome, error)
}

// Runner implements Executor on top of os/exec.
// The zero value is ready to use.
type Runner struct {
	// Grace is the time between SIGTERM and SIGKILL on forced termination.
	Grace time.Duration
	// Drain bounds how long output is still read after the process exited.
	Drain time.Duration
}

var _ Executor = (*Runner)(nil)

// Run launches spec and waits for it to exit, for spec.Timeout to elapse, or
// for ctx to end. On timeout or cancellation the whole process group is
// terminated and the captured partial output is returned with the error.
func (r *Runner) Run(ctx context.Context, spec Spec) (Outcome, error) {
	if len(spec.Args) == 0 || spec.Args[0] == "" {
		return Outcome{ExitCode: -1}, fmt.Errorf("%w: empty command", ErrLaunch)
	}
	tool := filepath.Base(spec.Args[0])
	logger := log.WithComponentFromContext(ctx, "process").With().Str("tool", tool).Logger()

	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.Command(spec.Args[0], spec.Args[1:]...) //nolint:gosec // argv is built by callers, never a shell string
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	procgroup.Set(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		metrics.IncProcRun(tool, "launch")
		return Outcome{ExitCode: -1}, fmt.Errorf("%w: %s: %v", ErrLaunch, tool, err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	start := time.Now()
	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		metrics.IncProcRun(tool, "launch")
		return Outcome{ExitCode: -1}, fmt.Errorf("%w: %s: %v", ErrLaunch, tool, err)
	}
	// The child holds its own copy of the write end.
	_ = pw.Close()

	logger.Debug().Str(log.FieldEvent, "process.started").Int(log.FieldPID, cmd.Process.Pid).Msg("process started")

	ring := NewLineRing(orDefault(spec.MaxLines, defaultMaxLines))
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		consume(pr, orDefault(spec.MaxLineBytes, defaultMaxLineBytes), func(line string) {
			ring.Add(line)
			logger.Debug().Str("line", line).Msg("process output")
			if spec.OnLine != nil {
				spec.OnLine(line)
			}
		})
	}()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var (
		waitErr  error
		timedOut bool
		canceled bool
	)
	select {
	case waitErr = <-waitCh:
	case <-runCtx.Done():
		if ctx.Err() != nil {
			canceled = true
		} else {
			timedOut = true
		}
		waitErr = procgroup.Terminate(cmd, waitCh, durationOr(r.Grace, defaultGrace))
	}

	// Reading stops at EOF once every holder of the write end is gone.
	// A detached grandchild may keep it open, so bound the wait.
	select {
	case <-readDone:
	case <-time.After(durationOr(r.Drain, defaultDrain)):
		_ = pr.Close()
		<-readDone
	}
	_ = pr.Close()

	out := Outcome{
		ExitCode: -1,
		Output:   ring.String(),
		TimedOut: timedOut,
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}

	evt := logger.Debug().
		Str(log.FieldEvent, "process.exited").
		Int(log.FieldExitCode, out.ExitCode).
		Dur("duration", out.Duration)

	switch {
	case timedOut:
		evt.Bool("timed_out", true).Msg("process killed after deadline")
		metrics.IncProcRun(tool, "timeout")
		return out, fmt.Errorf("%w: %s after %s", ErrTimeout, tool, spec.Timeout)
	case canceled:
		evt.Bool("canceled", true).Msg("process killed on cancellation")
		metrics.IncProcRun(tool, "canceled")
		return out, fmt.Errorf("%w: %s: %w", ErrCanceled, tool, context.Cause(ctx))
	case waitErr != nil:
		evt.Msg("process failed")
		metrics.IncProcRun(tool, "exit")
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return out, fmt.Errorf("%w: %s exited with code %d", ErrExit, tool, out.ExitCode)
		}
		return out, fmt.Errorf("%w: %s: %v", ErrExit, tool, waitErr)
	}

	evt.Msg("process finished")
	metrics.IncProcRun(tool, "ok")
	return out, nil
}

// consume reads r line by line until EOF or a read error. Lines longer than
// maxLine bytes are truncated; the remainder is discarded so the writer never
// blocks on a full pipe.
func consume(r io.Reader, maxLine int, onLine func(string)) {
	br := bufio.NewReader(r)
	buf := make([]byte, 0, 256)
	for {
		chunk, isPrefix, err := br.ReadLine()
		if room := maxLine - len(buf); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
			}
			buf = append(buf, chunk...)
		}
		if err != nil {
			if len(buf) > 0 {
				onLine(string(buf))
			}
			return
		}
		if isPrefix {
			continue
		}
		if len(buf) > 0 {
			onLine(string(buf))
		}
		buf = buf[:0]
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func durationOr(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}
