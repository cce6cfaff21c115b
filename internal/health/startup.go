// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/ManuGH/ytaudio/internal/config"
	"github.com/ManuGH/ytaudio/internal/log"
)

// PerformStartupChecks validates the environment before serving. Missing
// tool binaries only warn; readiness keeps reporting them.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := EnsureWritableDir(cfg.TempDir); err != nil {
		return fmt.Errorf("scratch directory check failed: %w", err)
	}
	if err := EnsureWritableDir(cfg.ResultsDir); err != nil {
		return fmt.Errorf("results directory check failed: %w", err)
	}
	logger.Info().Str("temp_dir", cfg.TempDir).Str("results_dir", cfg.ResultsDir).Msg("directories are writable")

	for _, bin := range []string{cfg.YtDlpPath, cfg.FfmpegPath} {
		if _, err := exec.LookPath(bin); err != nil {
			logger.Warn().Err(err).Str("binary", bin).Msg("binary not found; downloads will fail until it is installed")
		}
	}

	if cfg.CookiesFile != "" {
		f, err := os.Open(cfg.CookiesFile) // #nosec G304 -- operator supplied
		if err != nil {
			return fmt.Errorf("cookies file: %w", err)
		}
		_ = f.Close()
	}

	if cfg.BotEnabled() && cfg.WebhookURL == "" {
		logger.Warn().Msg("bot token set without WEBHOOK_URL; Telegram updates will not arrive")
	}
	return nil
}
