// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/ytaudio/internal/config"
	"github.com/ManuGH/ytaudio/internal/log"
)

// Runner is a background loop that returns when ctx ends.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// App owns the long-lived runtime lifecycle (sweepers, config reload wiring)
// and delegates server management to Manager.
type App struct {
	logger    zerolog.Logger
	manager   Manager
	cfgHolder *config.Holder
	runners   map[string]Runner
	order     []string
}

// NewApp creates a new App orchestrator. cfgHolder may be nil.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.Holder) *App {
	return &App{
		logger:    logger,
		manager:   manager,
		cfgHolder: cfgHolder,
		runners:   make(map[string]Runner),
	}
}

// AddRunner registers a background loop started by Run.
func (a *App) AddRunner(name string, r Runner) {
	if _, ok := a.runners[name]; !ok {
		a.order = append(a.order, name)
	}
	a.runners[name] = r
}

// Run starts all owned background subsystems and blocks until ctx is cancelled
// or the manager fails.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, name := range a.order {
		r := a.runners[name]
		g.Go(func() error {
			if err := r.Run(gctx); err != nil {
				// Background loops are best-effort; the servers keep running.
				a.logger.Warn().Err(err).Str("runner", name).Str(log.FieldEvent, "daemon.runner_failed").Msg("background runner stopped")
			}
			return nil
		})
	}

	if a.cfgHolder != nil {
		g.Go(func() error {
			if err := a.cfgHolder.Run(gctx); err != nil {
				a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
			}
			return nil
		})

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case cfg := <-applyCh:
					a.apply(cfg)
				}
			}
		})
	}

	g.Go(func() error {
		return a.manager.Start(gctx)
	})

	return g.Wait()
}

// apply pushes the reloadable settings that are not read per call.
func (a *App) apply(cfg config.AppConfig) {
	log.Configure(log.Config{Level: cfg.LogLevel, Version: cfg.Version})
	a.logger.Info().
		Str(log.FieldEvent, "config.applied").
		Str("log_level", cfg.LogLevel).
		Msg("applied reloaded configuration")
}
