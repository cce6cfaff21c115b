// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package extractor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/ytaudio/internal/process"
)

type fakeExec struct {
	mu    sync.Mutex
	calls [][]string
	dirs  []string
	runs  atomic.Int32
	gate  chan struct{} // when set, Run blocks until closed
	fn    func(spec process.Spec) (process.Outcome, error)
}

func (f *fakeExec) Run(_ context.Context, spec process.Spec) (process.Outcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, spec.Args)
	f.dirs = append(f.dirs, spec.Dir)
	f.mu.Unlock()
	f.runs.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.fn(spec)
}
