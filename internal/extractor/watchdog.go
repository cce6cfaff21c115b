// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package extractor

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/ytaudio/internal/log"
)

// ErrStalled is returned by Watchdog.Run when a download stops making progress.
var ErrStalled = errors.New("download stalled")

// progressMarker prefixes the machine-readable progress lines requested by
// ProgressTemplate.
const progressMarker = "ytaudio-progress"

// ProgressTemplate makes the download tool print one line per progress
// update: marker, downloaded bytes, status.
const ProgressTemplate = "download:" + progressMarker + " %(progress.downloaded_bytes)s %(progress.status)s"

// watchState tracks the transfer phase seen by a Watchdog.
type watchState int

const (
	watchStarting  watchState = iota // no bytes reported yet
	watchRunning                     // bytes are arriving
	watchStalled                     // no new bytes within the stall timeout
	watchTimedOut                    // no first byte within the start timeout
	watchCompleted                   // the tool reported the transfer finished
)

type clock interface {
	Now() time.Time
	NewTicker(d time.Duration) ticker
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) Now() time.Time                   { return time.Now() }
func (realClock) NewTicker(d time.Duration) ticker { return &realTicker{time.NewTicker(d)} }

type realTicker struct {
	*time.Ticker
}

func (rt *realTicker) C() <-chan time.Time { return rt.Ticker.C }

// Watchdog enforces start and stall timeouts on the transfer phase of a
// download. Once the tool reports the transfer finished, monitoring stops;
// conversion afterwards is bounded only by the job timeout.
type Watchdog struct {
	mu sync.Mutex

	startTimeout time.Duration
	stallTimeout time.Duration

	lastBytes     int64
	lastHeartbeat time.Time
	state         watchState

	finished chan struct{}
	once     sync.Once
	clock    clock
}

// NewWatchdog creates a watchdog. A zero startTimeout reuses stallTimeout.
func NewWatchdog(startTimeout, stallTimeout time.Duration) *Watchdog {
	if startTimeout <= 0 {
		startTimeout = stallTimeout
	}
	return &Watchdog{
		startTimeout: startTimeout,
		stallTimeout: stallTimeout,
		finished:     make(chan struct{}),
		clock:        realClock{},
	}
}

// Run checks progress until ctx ends or the transfer finishes. It returns
// ErrStalled when a timeout fires.
func (w *Watchdog) Run(ctx context.Context) error {
	w.mu.Lock()
	w.lastHeartbeat = w.clock.Now()
	w.mu.Unlock()

	tick := time.Second
	if q := w.stallTimeout / 4; q > 0 && q < tick {
		tick = q
	}
	t := w.clock.NewTicker(tick)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.finished:
			return nil
		case <-t.C():
			if err := w.check(); err != nil {
				return err
			}
		}
	}
}

// ParseLine consumes one output line. Lines other than progress lines are ignored.
func (w *Watchdog) ParseLine(line string) {
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != progressMarker {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// downloaded_bytes is "NA" until the first chunk arrives.
	if n, err := strconv.ParseInt(fields[1], 10, 64); err == nil && n > w.lastBytes {
		w.lastBytes = n
		w.lastHeartbeat = w.clock.Now()
		if w.state == watchStarting {
			w.state = watchRunning
			log.L().Debug().Str(log.FieldComponent, "extractor").Msg("watchdog: transfer progress detected")
		}
	}
	if fields[2] == "finished" {
		w.state = watchCompleted
		w.once.Do(func() { close(w.finished) })
	}
}

func (w *Watchdog) check() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	elapsed := w.clock.Now().Sub(w.lastHeartbeat)
	switch w.state {
	case watchStarting:
		if elapsed > w.startTimeout {
			w.state = watchTimedOut
			return ErrStalled
		}
	case watchRunning:
		if elapsed > w.stallTimeout {
			w.state = watchStalled
			return ErrStalled
		}
	}
	return nil
}

func (w *Watchdog) status() watchState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// BytesSeen returns the highest downloaded byte count reported so far.
func (w *Watchdog) BytesSeen() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastBytes
}
