// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// FieldError is one invalid setting.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate reports every violation in cfg, joined.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(field, msg string) {
		errs = append(errs, &FieldError{Field: field, Message: msg})
	}

	if cfg.BotToken != "" && !strings.Contains(cfg.BotToken, ":") {
		add("BotToken", "must have the form <id>:<secret>")
	}
	if cfg.WebhookURL != "" {
		u, err := url.Parse(cfg.WebhookURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			add("WebhookURL", "must be an absolute https URL")
		}
		if cfg.BotToken == "" {
			add("WebhookURL", "requires BotToken")
		}
	}
	for name, addr := range map[string]string{"ListenAddr": cfg.ListenAddr, "MetricsAddr": cfg.MetricsAddr} {
		if addr == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			add(name, fmt.Sprintf("invalid listen address %q", addr))
		}
	}
	if cfg.ListenAddr == "" {
		add("ListenAddr", "must not be empty")
	}

	if strings.TrimSpace(cfg.TempDir) == "" {
		add("TempDir", "must not be empty")
	}
	if cfg.YtDlpPath == "" {
		add("YtDlpPath", "must not be empty")
	}
	if cfg.FfmpegPath == "" {
		add("FfmpegPath", "must not be empty")
	}
	if cfg.MaxFileSizeBytes <= 0 {
		add("MaxFileSizeBytes", "must be positive")
	}
	if cfg.DownloadTimeout <= 0 {
		add("DownloadTimeout", "must be positive")
	}
	if cfg.StallTimeout < 0 {
		add("StallTimeout", "must not be negative")
	}
	if cfg.MetadataTimeout <= 0 {
		add("MetadataTimeout", "must be positive")
	}
	if cfg.SessionTTL <= 0 {
		add("SessionTTL", "must be positive")
	}
	if cfg.SessionSweepInterval <= 0 {
		add("SessionSweepInterval", "must be positive")
	}
	if cfg.ResultTTL <= 0 {
		add("ResultTTL", "must be positive")
	}
	if cfg.MaxConcurrentJobs < 1 {
		add("MaxConcurrentJobs", "must be at least 1")
	}
	if len(cfg.AllowedVideoHosts) == 0 {
		add("AllowedVideoHosts", "must not be empty")
	}
	if cfg.RateLimitPerMinute < 0 {
		add("RateLimitPerMinute", "must not be negative")
	}
	if cfg.Redis.DB < 0 {
		add("Redis.DB", "must not be negative")
	}
	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.Exporter {
		case "grpc", "http":
		default:
			add("Telemetry.Exporter", `must be "grpc" or "http"`)
		}
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			add("Telemetry.SamplingRate", "must be within [0, 1]")
		}
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		add("LogLevel", fmt.Sprintf("unknown level %q", cfg.LogLevel))
	}
	return errors.Join(errs...)
}
