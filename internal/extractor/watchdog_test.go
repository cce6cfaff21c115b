// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package extractor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type mockClock struct {
	mu           sync.Mutex
	now          time.Time
	latestTicker *mockTicker
}

func (m *mockClock) Now() time.Time { m.mu.Lock(); defer m.mu.Unlock(); return m.now }
func (m *mockClock) NewTicker(time.Duration) ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latestTicker = &mockTicker{c: make(chan time.Time)}
	return m.latestTicker
}

func (m *mockClock) advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func (m *mockClock) ticker(t *testing.T) *mockTicker {
	t.Helper()
	var tk *mockTicker
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		tk = m.latestTicker
		return tk != nil
	}, time.Second, time.Millisecond)
	return tk
}

type mockTicker struct {
	c chan time.Time
}

func (m *mockTicker) C() <-chan time.Time { return m.c }
func (m *mockTicker) Stop()               {}

func startWatchdog(t *testing.T, w *Watchdog) (<-chan error, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	return errCh, cancel
}

func sendTick(t *testing.T, tk *mockTicker, now time.Time) {
	t.Helper()
	select {
	case tk.c <- now:
	case <-time.After(time.Second):
		t.Fatal("watchdog stopped reading ticks")
	}
}

func awaitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(time.Second):
		t.Fatal("watchdog did not return")
		return nil
	}
}

func TestWatchdog_StartTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	clock := &mockClock{now: time.Now()}
	w := NewWatchdog(2*time.Second, 5*time.Second)
	w.clock = clock
	errCh, cancel := startWatchdog(t, w)
	defer cancel()

	tk := clock.ticker(t)
	clock.advance(3 * time.Second)
	sendTick(t, tk, clock.Now())

	assert.ErrorIs(t, awaitErr(t, errCh), ErrStalled)
	assert.Equal(t, watchTimedOut, w.status())
}

func TestWatchdog_StallWindow(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	w := NewWatchdog(2*time.Second, 5*time.Second)
	w.clock = clock
	w.lastHeartbeat = clock.Now()

	w.ParseLine("ytaudio-progress 1024 downloading")
	assert.Equal(t, watchRunning, w.status())

	clock.advance(4 * time.Second)
	require.NoError(t, w.check())

	// New bytes restart the window.
	w.ParseLine("ytaudio-progress 2048 downloading")
	clock.advance(4 * time.Second)
	require.NoError(t, w.check())

	clock.advance(2 * time.Second)
	assert.ErrorIs(t, w.check(), ErrStalled)
	assert.Equal(t, watchStalled, w.status())
}

func TestWatchdog_RunReturnsOnStall(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	clock := &mockClock{now: time.Now()}
	w := NewWatchdog(2*time.Second, 5*time.Second)
	w.clock = clock
	errCh, cancel := startWatchdog(t, w)
	defer cancel()

	tk := clock.ticker(t)
	w.ParseLine("ytaudio-progress 1024 downloading")
	clock.advance(6 * time.Second)
	sendTick(t, tk, clock.Now())

	assert.ErrorIs(t, awaitErr(t, errCh), ErrStalled)
	assert.Equal(t, watchStalled, w.status())
}

func TestWatchdog_FinishedStopsMonitoring(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	clock := &mockClock{now: time.Now()}
	w := NewWatchdog(time.Second, time.Second)
	w.clock = clock
	errCh, cancel := startWatchdog(t, w)
	defer cancel()

	clock.ticker(t)
	w.ParseLine("ytaudio-progress 4096 finished")

	assert.NoError(t, awaitErr(t, errCh))
	assert.Equal(t, watchCompleted, w.status())
}

func TestWatchdog_ParserRobustness(t *testing.T) {
	w := NewWatchdog(2*time.Second, 5*time.Second)

	w.ParseLine("ytaudio-progress NA downloading")
	assert.Equal(t, watchStarting, w.status(), "NA is not progress")
	assert.Equal(t, int64(0), w.BytesSeen())

	w.ParseLine("[download]  45.0% of 3.50MiB")
	w.ParseLine("garbage")
	w.ParseLine("ytaudio-progress 100")

	w.ParseLine("ytaudio-progress 100 downloading")
	assert.Equal(t, int64(100), w.BytesSeen())
	w.ParseLine("ytaudio-progress 50 downloading")
	assert.Equal(t, int64(100), w.BytesSeen(), "non-monotonic counts are ignored")
}

func TestWatchdog_DefaultsStartTimeout(t *testing.T) {
	w := NewWatchdog(0, 7*time.Second)
	assert.Equal(t, 7*time.Second, w.startTimeout)
}
