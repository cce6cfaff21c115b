// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ManuGH/ytaudio/internal/api"
	"github.com/ManuGH/ytaudio/internal/config"
	"github.com/ManuGH/ytaudio/internal/daemon"
	"github.com/ManuGH/ytaudio/internal/extractor"
	"github.com/ManuGH/ytaudio/internal/health"
	"github.com/ManuGH/ytaudio/internal/jobs"
	xglog "github.com/ManuGH/ytaudio/internal/log"
	"github.com/ManuGH/ytaudio/internal/process"
	"github.com/ManuGH/ytaudio/internal/ratelimit"
	"github.com/ManuGH/ytaudio/internal/session"
	"github.com/ManuGH/ytaudio/internal/tasks"
	"github.com/ManuGH/ytaudio/internal/telegram"
	"github.com/ManuGH/ytaudio/internal/telemetry"
)

// build wires every component from the initial snapshot. Settings read per
// job (tools, limits, hosts) follow reloads through holder.Get.
func build(ctx context.Context, holder *config.Holder) (*daemon.App, error) {
	cfg := holder.Get()
	logger := xglog.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "ytaudio",
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	sessions := session.NewStore(session.WithTTL(cfg.SessionTTL))
	runner := &process.Runner{}
	orchestrator, err := jobs.New(jobs.Deps{
		Config:   func() jobs.Config { return holder.Get().JobsConfig() },
		Fetcher:  extractor.NewFetcher(runner, cfg.MetadataTimeout),
		Executor: runner,
		Sessions: sessions,
		Pool:     jobs.NewPool(cfg.MaxConcurrentJobs),
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	limiter := ratelimit.New(ratelimit.PerMinute(cfg.RateLimitPerMinute))

	var (
		store  tasks.Store
		memory *tasks.MemoryStore
		redis  *tasks.RedisStore
	)
	if cfg.Redis.Addr != "" {
		redis, err = tasks.NewRedisStore(tasks.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.ResultTTL)
		if err != nil {
			return nil, fmt.Errorf("task store: %w", err)
		}
		store = redis
	} else {
		memory = tasks.NewMemoryStore(cfg.ResultTTL)
		store = memory
	}
	taskService := &tasks.Service{Jobs: orchestrator, Store: store, ResultsDir: cfg.ResultsDir}

	var bot *telegram.Handler
	if cfg.BotEnabled() {
		botAPI, err := telegram.NewBot(cfg.BotToken)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		bot = telegram.NewHandler(telegram.HandlerConfig{
			Jobs:      orchestrator,
			Messenger: botAPI,
			Limiter:   limiter,
			Admins:    cfg.AdminChats,
			Username:  cfg.BotUsername,
		})
		if cfg.WebhookURL != "" {
			if err := telegram.RegisterWebhook(ctx, botAPI, cfg.WebhookURL); err != nil {
				return nil, fmt.Errorf("telegram webhook: %w", err)
			}
		}
	}

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewBinaryChecker("yt-dlp", func() string { return holder.Get().YtDlpPath }))
	hm.RegisterChecker(health.NewBinaryChecker("ffmpeg", func() string { return holder.Get().FfmpegPath }))
	hm.RegisterChecker(health.NewWritableDirChecker("scratch_dir", func() string { return holder.Get().TempDir }))
	hm.RegisterChecker(health.NewWritableDirChecker("results_dir", func() string { return holder.Get().ResultsDir }))
	if redis != nil {
		hm.RegisterChecker(health.NewPingChecker("redis", redis.Ping))
	}

	deps := api.Deps{Tasks: taskService, Health: hm, Limiter: limiter}
	if bot != nil {
		deps.Webhook = bot
	}
	server := api.New(api.Config{
		AllowedOrigins:    cfg.AllowedOrigins,
		RequestsPerMinute: cfg.RateLimitPerMinute * 6,
		ServeMetrics:      cfg.MetricsAddr == "",
		TracingService:    "ytaudio",
	}, deps)

	serverCfg := daemon.DefaultServerConfig(cfg.ListenAddr)
	serverCfg.MetricsAddr = cfg.MetricsAddr
	var metricsHandler http.Handler
	if cfg.MetricsAddr != "" {
		metricsHandler = api.MetricsHandler()
	}
	mgr, err := daemon.NewManager(serverCfg, daemon.Deps{
		Logger:         logger,
		APIHandler:     server.Routes(),
		MetricsHandler: metricsHandler,
	})
	if err != nil {
		return nil, err
	}

	// Hooks run newest-first after the listeners stop.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	if redis != nil {
		mgr.RegisterShutdownHook("redis", func(context.Context) error { return redis.Close() })
	}
	mgr.RegisterShutdownHook("jobs", orchestrator.Shutdown)
	if bot != nil {
		mgr.RegisterShutdownHook("telegram", bot.Wait)
	}

	app := daemon.NewApp(logger, mgr, holder)
	app.AddRunner("session_sweeper", &session.Sweeper{Store: sessions, Interval: cfg.SessionSweepInterval})
	app.AddRunner("result_janitor", &tasks.Janitor{Dir: cfg.ResultsDir, TTL: cfg.ResultTTL, Memory: memory})
	return app, nil
}
