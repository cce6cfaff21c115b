// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package process

import "errors"

var (
	// ErrLaunch indicates the executable could not be started.
	ErrLaunch = errors.New("process launch failed")
	// ErrTimeout indicates the deadline elapsed and the process was killed.
	ErrTimeout = errors.New("process timed out")
	// ErrExit indicates the process exited with a non-zero code.
	ErrExit = errors.New("process exited with failure")
	// ErrCanceled indicates the caller's context ended before the process did.
	ErrCanceled = errors.New("process canceled")
)
