// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command daemon runs the audio extraction service: the HTTP API, the
// Telegram webhook and the background sweepers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/ytaudio/internal/config"
	"github.com/ManuGH/ytaudio/internal/health"
	xglog "github.com/ManuGH/ytaudio/internal/log"
	"github.com/ManuGH/ytaudio/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "config":
			return runConfigCLI(args[1:], stdout, stderr)
		case "healthcheck":
			return runHealthcheckCLI(args[1:], stdout, stderr)
		}
	}

	fs := flag.NewFlagSet("ytaudio", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showVersion := fs.Bool("version", false, "print version and exit")
	configPath := fs.String("config", "", "path to config file (YAML)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return 0
	}

	// Safe defaults until the configuration is loaded.
	xglog.Configure(xglog.Config{Level: "info", Version: version.Version})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Precedence: ENV > File > Defaults
	path := strings.TrimSpace(*configPath)
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
		return 1
	}
	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Version: cfg.Version})

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str("event", "config.loaded").
		Str("source", source).
		Str("path", path).
		Bool("bot", cfg.BotEnabled()).
		Bool("redis", cfg.Redis.Addr != "").
		Msg("loaded configuration")

	// Pre-flight checks (fail fast)
	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Error().Err(err).Str("event", "startup.check_failed").Msg("startup checks failed")
		return 1
	}

	app, err := build(ctx, config.NewHolder(cfg, loader))
	if err != nil {
		logger.Error().Err(err).Str("event", "startup.wiring_failed").Msg("failed to build daemon")
		return 1
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Str("event", "daemon.failed").Msg("daemon stopped with error")
		return 1
	}
	logger.Info().Str("event", "daemon.stopped").Msg("daemon stopped")
	return 0
}
