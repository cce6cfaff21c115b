// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader builds an AppConfig with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a loader. An empty configPath means env-only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Path returns the YAML file the loader reads, if any.
func (l *Loader) Path() string { return l.configPath }

// Load produces a validated snapshot.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFile(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge config file: %w", err)
		}
	}

	mergeEnv(&cfg)

	if cfg.TempDir != "" {
		if abs, err := filepath.Abs(cfg.TempDir); err == nil {
			cfg.TempDir = abs
		}
	}
	if cfg.ResultsDir == "" && cfg.TempDir != "" {
		cfg.ResultsDir = filepath.Join(cfg.TempDir, "results")
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr:           DefaultListenAddr,
		TempDir:              filepath.Join(os.TempDir(), "ytaudio"),
		ResultTTL:            DefaultResultTTL,
		YtDlpPath:            DefaultYtDlpPath,
		FfmpegPath:           DefaultFfmpegPath,
		MaxFileSizeBytes:     DefaultMaxFileSizeBytes,
		DownloadTimeout:      DefaultDownloadTimeout,
		StallTimeout:         DefaultStallTimeout,
		MetadataTimeout:      DefaultMetadataTimeout,
		SessionTTL:           DefaultSessionTTL,
		SessionSweepInterval: DefaultSweepInterval,
		MaxConcurrentJobs:    DefaultMaxConcurrentJobs,
		AllowedVideoHosts:    append([]string(nil), DefaultAllowedHosts...),
		RateLimitPerMinute:   DefaultRateLimitPerMinute,
		Telemetry:            TelemetryConfig{Exporter: "grpc", SamplingRate: 1.0},
		LogLevel:             "info",
	}
}

// loadFile parses path strictly: unknown keys and trailing documents fail.
func loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- the path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFile(cfg *AppConfig, f *FileConfig) error {
	setString(&cfg.BotToken, f.Bot.Token)
	setString(&cfg.BotUsername, f.Bot.Username)
	if len(f.Bot.AdminChats) > 0 {
		cfg.AdminChats = f.Bot.AdminChats
	}
	setString(&cfg.WebhookURL, f.Bot.WebhookURL)

	setString(&cfg.ListenAddr, f.Server.ListenAddr)
	setString(&cfg.MetricsAddr, f.Server.MetricsAddr)
	if len(f.Server.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = f.Server.AllowedOrigins
	}

	setString(&cfg.YtDlpPath, f.Tools.YtDlp)
	setString(&cfg.FfmpegPath, f.Tools.Ffmpeg)
	setString(&cfg.CookiesFile, f.Tools.Cookies)

	setString(&cfg.TempDir, f.Storage.TempDir)
	setString(&cfg.ResultsDir, f.Storage.ResultsDir)

	var errs []error
	setDuration(&cfg.ResultTTL, "storage.resultTtl", f.Storage.ResultTTL, &errs)
	setDuration(&cfg.DownloadTimeout, "limits.downloadTimeout", f.Limits.DownloadTimeout, &errs)
	setDuration(&cfg.StallTimeout, "limits.stallTimeout", f.Limits.StallTimeout, &errs)
	setDuration(&cfg.MetadataTimeout, "limits.metadataTimeout", f.Limits.MetadataTimeout, &errs)
	setDuration(&cfg.SessionTTL, "limits.sessionTtl", f.Limits.SessionTTL, &errs)
	setDuration(&cfg.SessionSweepInterval, "limits.sweepInterval", f.Limits.SweepInterval, &errs)

	if f.Limits.MaxFileSizeBytes != nil {
		cfg.MaxFileSizeBytes = *f.Limits.MaxFileSizeBytes
	}
	if f.Limits.MaxConcurrentJobs != nil {
		cfg.MaxConcurrentJobs = *f.Limits.MaxConcurrentJobs
	}
	if f.Limits.RateLimitPerMinute != nil {
		cfg.RateLimitPerMinute = *f.Limits.RateLimitPerMinute
	}
	if len(f.Limits.AllowedVideoHosts) > 0 {
		cfg.AllowedVideoHosts = f.Limits.AllowedVideoHosts
	}
	if f.Redis != nil {
		cfg.Redis = *f.Redis
	}
	if f.Telemetry != nil {
		cfg.Telemetry = *f.Telemetry
	}
	setString(&cfg.LogLevel, f.LogLevel)
	return errors.Join(errs...)
}

// mergeEnv overrides cfg from the process environment. The current value is
// the fallback so file settings survive unset variables.
func mergeEnv(cfg *AppConfig) {
	cfg.BotToken = ParseString("BOT_TOKEN", cfg.BotToken)
	cfg.BotUsername = ParseString("BOT_USERNAME", cfg.BotUsername)
	cfg.AdminChats = ParseInt64List("BOT_ADMIN_CHATIDS", cfg.AdminChats)
	cfg.WebhookURL = ParseString("WEBHOOK_URL", cfg.WebhookURL)

	if port := ParseString("PORT", ""); port != "" {
		cfg.ListenAddr = ":" + port
	}
	cfg.ListenAddr = ParseString("LISTEN_ADDR", cfg.ListenAddr)
	cfg.MetricsAddr = ParseString("METRICS_ADDR", cfg.MetricsAddr)
	cfg.AllowedOrigins = ParseList("ALLOWED_ORIGINS", cfg.AllowedOrigins)

	cfg.TempDir = ParseString("TEMP_DIR", cfg.TempDir)
	cfg.ResultsDir = ParseString("RESULTS_DIR", cfg.ResultsDir)
	cfg.ResultTTL = ParseDuration("RESULT_TTL", cfg.ResultTTL)
	cfg.YtDlpPath = ParseString("YT_DLP_PATH", cfg.YtDlpPath)
	cfg.FfmpegPath = ParseString("FFMPEG_PATH", cfg.FfmpegPath)
	cfg.CookiesFile = ParseString("COOKIES_FILE", cfg.CookiesFile)

	cfg.MaxFileSizeBytes = ParseInt64("MAX_FILE_SIZE_BYTES", cfg.MaxFileSizeBytes)
	cfg.DownloadTimeout = ParseSeconds("DOWNLOAD_TIMEOUT_SECONDS", cfg.DownloadTimeout)
	cfg.StallTimeout = ParseSeconds("DOWNLOAD_STALL_SECONDS", cfg.StallTimeout)
	cfg.MetadataTimeout = ParseSeconds("METADATA_TIMEOUT_SECONDS", cfg.MetadataTimeout)
	cfg.SessionTTL = ParseDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.SessionSweepInterval = ParseDuration("SESSION_SWEEP_INTERVAL", cfg.SessionSweepInterval)
	cfg.MaxConcurrentJobs = ParseInt("MAX_CONCURRENT_JOBS", cfg.MaxConcurrentJobs)
	cfg.AllowedVideoHosts = ParseList("ALLOWED_VIDEO_HOSTS", cfg.AllowedVideoHosts)
	cfg.RateLimitPerMinute = ParseInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)

	cfg.Redis.Addr = ParseString("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = ParseString("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = ParseInt("REDIS_DB", cfg.Redis.DB)

	cfg.Telemetry.Enabled = ParseBool("OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString("OTEL_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString("OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat("OTEL_SAMPLING_RATE", cfg.Telemetry.SamplingRate)

	cfg.LogLevel = ParseString("LOG_LEVEL", cfg.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, field, v string, errs *[]error) {
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", field, err))
		return
	}
	*dst = d
}
