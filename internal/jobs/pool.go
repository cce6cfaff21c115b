// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/ManuGH/ytaudio/internal/log"
)

// DefaultConcurrency is the number of jobs running at once.
const DefaultConcurrency = 4

// ErrPoolClosed is returned by Go after Shutdown started.
var ErrPoolClosed = errors.New("job pool closed")

// Pool runs jobs concurrently with a bounded number in flight. Jobs never
// block each other beyond waiting for a free slot.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	// ctx is canceled only when Shutdown gives up waiting.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool running up to size jobs at once.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go schedules fn. The ctx passed to fn carries the values of parent but is
// only canceled by a forced shutdown. Panics in fn are recovered and logged.
func (p *Pool) Go(parent context.Context, fn func(ctx context.Context)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	stop := context.AfterFunc(p.ctx, cancel)

	go func() {
		defer p.wg.Done()
		defer cancel()
		defer stop()
		defer func() {
			if r := recover(); r != nil {
				logger := log.WithComponentFromContext(ctx, "jobs")
				logger.Error().
					Str(log.FieldEvent, "job.panic").
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", debug.Stack()).
					Msg("job panicked")
			}
		}()

		// A job that cannot get a slot still runs, with a canceled ctx, so it
		// reports its outcome.
		if err := p.sem.Acquire(ctx, 1); err == nil {
			defer p.sem.Release(1)
		}
		fn(ctx)
	}()
	return nil
}

// Shutdown stops accepting jobs and waits for running ones. If ctx ends
// first, running jobs are canceled (their processes killed) and Shutdown
// waits for them to finish their cleanup before returning ctx.Err().
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
