// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/ytaudio/internal/log"
	"github.com/ManuGH/ytaudio/internal/metrics"
)

const reloadDebounce = 500 * time.Millisecond

// Holder keeps the current snapshot and swaps it atomically on reload.
// Readers take one snapshot per unit of work and never see a partial update.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	logger  zerolog.Logger

	listenersMu sync.RWMutex
	listeners   []chan<- AppConfig
}

// NewHolder wraps an initial snapshot.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current: initial,
		loader:  loader,
		logger:  log.WithComponent("config"),
	}
}

// Get returns the current snapshot.
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload re-reads the configuration. An invalid result keeps the old snapshot.
func (h *Holder) Reload(_ context.Context) error {
	next, err := h.loader.Load()
	if err != nil {
		metrics.IncConfigReload("failure")
		h.logger.Error().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("configuration reload rejected, keeping current")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	metrics.IncConfigReload("success")
	h.logChanges(prev, next)
	h.notify(next)
	h.logger.Info().Str(log.FieldEvent, "config.reloaded").Msg("configuration reloaded")
	return nil
}

// RegisterListener receives every successfully reloaded snapshot. Sends do
// not block; a full channel misses the update.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notify(cfg AppConfig) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().Str(log.FieldEvent, "config.listener_skip").Msg("listener channel full")
		}
	}
}

// Run reloads on SIGHUP and on changes to the config file until ctx ends.
func (h *Holder) Run(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	path := h.loader.Path()
	if path != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer func() { _ = watcher.Close() }()
		// The directory is watched so atomic replaces (rename over) are seen.
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("watch config dir: %w", err)
		}
		events, watchErrs = watcher.Events, watcher.Errors
		h.logger.Info().Str(log.FieldEvent, "config.watcher_started").Str("path", path).Msg("watching config file")
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			h.logger.Info().Str(log.FieldEvent, "config.sighup").Msg("SIGHUP received")
			_ = h.Reload(ctx)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() { _ = h.Reload(ctx) })
		case err, ok := <-watchErrs:
			if !ok {
				return nil
			}
			h.logger.Error().Err(err).Str(log.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}

func (h *Holder) logChanges(prev, next AppConfig) {
	if prev.MaxFileSizeBytes != next.MaxFileSizeBytes {
		h.logger.Info().Int64("old", prev.MaxFileSizeBytes).Int64("new", next.MaxFileSizeBytes).Msg("config changed: MaxFileSizeBytes")
	}
	if prev.DownloadTimeout != next.DownloadTimeout {
		h.logger.Info().Dur("old", prev.DownloadTimeout).Dur("new", next.DownloadTimeout).Msg("config changed: DownloadTimeout")
	}
	if prev.YtDlpPath != next.YtDlpPath || prev.FfmpegPath != next.FfmpegPath {
		h.logger.Info().Str("yt_dlp", next.YtDlpPath).Str("ffmpeg", next.FfmpegPath).Msg("config changed: tool paths")
	}
	if prev.LogLevel != next.LogLevel {
		h.logger.Info().Str("old", prev.LogLevel).Str("new", next.LogLevel).Msg("config changed: LogLevel")
	}
	if prev.BotToken != next.BotToken || prev.ListenAddr != next.ListenAddr || prev.Redis != next.Redis {
		h.logger.Warn().Msg("changed startup settings take effect after a restart")
	}
}
