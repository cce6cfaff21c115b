// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"context"
	"time"

	"github.com/ManuGH/ytaudio/internal/log"
	"github.com/ManuGH/ytaudio/internal/metrics"
)

// DefaultSweepInterval is how often expired sessions are purged.
const DefaultSweepInterval = 15 * time.Minute

// Sweeper periodically removes expired sessions, independent of access.
type Sweeper struct {
	Store    *Store
	Interval time.Duration
}

// Run starts the sweeper loop. It calls SweepOnce on every tick until ctx ends.
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.L().Info().Str(log.FieldComponent, "session").Dur("interval", interval).Msg("background sweeper started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce performs exactly one sweep pass. Deterministic; used by tests.
func (s *Sweeper) SweepOnce(_ context.Context) int {
	removed := s.Store.RemoveExpired()
	if removed > 0 {
		metrics.AddSessionsExpired(removed)
		log.L().Info().Str(log.FieldComponent, "session").Int("count", removed).Msg("sweep removed expired sessions")
	}
	return removed
}
