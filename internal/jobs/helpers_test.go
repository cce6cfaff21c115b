// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jobs

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ytaudio/internal/extractor"
	"github.com/ManuGH/ytaudio/internal/media"
	"github.com/ManuGH/ytaudio/internal/process"
	"github.com/ManuGH/ytaudio/internal/session"
)

const (
	testURL    = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	testBudget = 50 * 1024 * 1024
)

var shortVideo = media.Descriptor{
	ID: "dQw4w9WgXcQ", Title: "Song", DurationSeconds: 600,
	Container: "webm", Codec: "opus", BitrateKbps: 128, SizeBytes: media.UnknownSize,
}

type fakeFetcher struct {
	desc media.Descriptor
	err  error
	fn   func()
}

func (f *fakeFetcher) Fetch(context.Context, extractor.Tools, string) (media.Descriptor, error) {
	if f.fn != nil {
		f.fn()
	}
	return f.desc, f.err
}

// fakeExec emulates the download tool: it writes size bytes to the -o target.
type fakeExec struct {
	mu    sync.Mutex
	specs []process.Spec
	size  int
	out   process.Outcome
	err   error
	block chan struct{}
	lines []string
}

func (f *fakeExec) Run(ctx context.Context, spec process.Spec) (process.Outcome, error) {
	f.mu.Lock()
	f.specs = append(f.specs, spec)
	f.mu.Unlock()

	if spec.OnLine != nil {
		for _, l := range f.lines {
			spec.OnLine(l)
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return process.Outcome{ExitCode: -1}, fmt.Errorf("%w: %w", process.ErrCanceled, context.Cause(ctx))
		}
	}
	if f.err != nil {
		return f.out, f.err
	}
	target := outputArg(spec.Args)
	if strings.HasSuffix(target, ".%(ext)s") {
		target = strings.TrimSuffix(target, ".%(ext)s") + ".opus"
	}
	if err := os.WriteFile(target, make([]byte, f.size), 0o600); err != nil {
		return process.Outcome{ExitCode: 1}, err
	}
	return f.out, nil
}

func outputArg(args []string) string {
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

type recSink struct {
	mu        sync.Mutex
	delivered []Result
	existed   []bool
	failed    []*Error
	offers    []Proposal
	stages    []Stage
	done      chan struct{}
	once      sync.Once
}

func newRecSink() *recSink { return &recSink{done: make(chan struct{})} }

func (s *recSink) Delivered(_ context.Context, res Result) error {
	_, err := os.Stat(res.Path)
	s.mu.Lock()
	s.delivered = append(s.delivered, res)
	s.existed = append(s.existed, err == nil)
	s.mu.Unlock()
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *recSink) Failed(_ context.Context, err *Error) {
	s.mu.Lock()
	s.failed = append(s.failed, err)
	s.mu.Unlock()
	s.once.Do(func() { close(s.done) })
}

func (s *recSink) Progress(_ context.Context, stage Stage) {
	s.mu.Lock()
	s.stages = append(s.stages, stage)
	s.mu.Unlock()
}

func (s *recSink) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.done:
	case <-time.After(5 * time.Second):
		t.Fatal("sink was not called")
	}
}

// offerSink additionally implements Offerer.
type offerSink struct {
	*recSink
	offered chan Proposal
}

func newOfferSink() *offerSink {
	return &offerSink{recSink: newRecSink(), offered: make(chan Proposal, 1)}
}

func (s *offerSink) Offer(_ context.Context, p Proposal) {
	s.mu.Lock()
	s.offers = append(s.offers, p)
	s.mu.Unlock()
	s.offered <- p
}

type harness struct {
	orch     *Orchestrator
	sessions *session.Store
	exec     *fakeExec
	fetcher  *fakeFetcher
	scratch  string
	stall    time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sessions: session.NewStore(),
		exec:     &fakeExec{size: 1024},
		fetcher:  &fakeFetcher{desc: shortVideo},
		scratch:  t.TempDir(),
	}
	orch, err := New(Deps{
		Config: func() Config {
			return Config{
				ScratchDir:      h.scratch,
				MaxBytes:        testBudget,
				DownloadTimeout: time.Second,
				StallTimeout:    h.stall,
			}
		},
		Fetcher:  h.fetcher,
		Executor: h.exec,
		Sessions: h.sessions,
		Pool:     NewPool(4),
	})
	require.NoError(t, err)
	h.orch = orch
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})
	return h
}

func (h *harness) scratchEntries(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.scratch)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// drain waits for every running job to finish its cleanup.
func (h *harness) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.orch.Shutdown(ctx))
}
