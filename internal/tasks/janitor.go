// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package tasks

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/ytaudio/internal/log"
	"github.com/ManuGH/ytaudio/internal/metrics"
)

// DefaultResultTTL is how long finished artifacts stay downloadable.
const DefaultResultTTL = time.Hour

// Janitor deletes published artifacts older than TTL and, for an in-memory
// store, expired task records.
type Janitor struct {
	Dir      string
	TTL      time.Duration
	Interval time.Duration
	Memory   *MemoryStore
	Now      func() time.Time
}

// Run sweeps on every tick until ctx ends.
func (j *Janitor) Run(ctx context.Context) error {
	interval := j.Interval
	if interval <= 0 {
		interval = j.ttl() / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := log.WithComponent("tasks")
	logger.Info().Dur("interval", interval).Str("dir", j.Dir).Msg("result janitor started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs one pass and returns the number of files removed.
func (j *Janitor) SweepOnce(_ context.Context) int {
	logger := log.WithComponent("tasks")
	now := time.Now()
	if j.Now != nil {
		now = j.Now()
	}
	if j.Memory != nil {
		j.Memory.DeleteExpired(now)
	}

	entries, err := os.ReadDir(j.Dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Err(err).Str("dir", j.Dir).Msg("read results dir")
		}
		return 0
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) <= j.ttl() {
			continue
		}
		path := filepath.Join(j.Dir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			metrics.IncTempCleanupFailure()
			logger.Warn().Err(err).Str("path", path).Msg("remove expired result")
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info().Int("count", removed).Msg("expired results removed")
	}
	return removed
}

func (j *Janitor) ttl() time.Duration {
	if j.TTL <= 0 {
		return DefaultResultTTL
	}
	return j.TTL
}
