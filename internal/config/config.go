// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads and hot-reloads the service configuration.
package config

import (
	"time"

	"github.com/ManuGH/ytaudio/internal/extractor"
	"github.com/ManuGH/ytaudio/internal/jobs"
)

// Defaults.
const (
	DefaultListenAddr         = ":8080"
	DefaultMaxFileSizeBytes   = 50 * 1024 * 1024
	DefaultDownloadTimeout    = 600 * time.Second
	DefaultMetadataTimeout    = 60 * time.Second
	DefaultStallTimeout       = 120 * time.Second
	DefaultSessionTTL         = 30 * time.Minute
	DefaultSweepInterval      = 15 * time.Minute
	DefaultResultTTL          = time.Hour
	DefaultMaxConcurrentJobs  = 4
	DefaultRateLimitPerMinute = 10
	DefaultYtDlpPath          = "yt-dlp"
	DefaultFfmpegPath         = "ffmpeg"
)

// DefaultAllowedHosts are the video hosts accepted by default.
var DefaultAllowedHosts = []string{"youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be"}

// AppConfig is one immutable configuration snapshot.
type AppConfig struct {
	Version string

	BotToken    string
	BotUsername string
	AdminChats  []int64
	WebhookURL  string

	ListenAddr     string
	MetricsAddr    string
	AllowedOrigins []string

	TempDir     string
	ResultsDir  string
	ResultTTL   time.Duration
	YtDlpPath   string
	FfmpegPath  string
	CookiesFile string

	MaxFileSizeBytes     int64
	DownloadTimeout      time.Duration
	StallTimeout         time.Duration
	MetadataTimeout      time.Duration
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	MaxConcurrentJobs    int
	AllowedVideoHosts    []string
	RateLimitPerMinute   int

	Redis     RedisConfig
	Telemetry TelemetryConfig
	LogLevel  string
}

// RedisConfig selects the optional Redis task store. Empty Addr keeps tasks
// in memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// TelemetryConfig configures OTLP tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// FileConfig is the YAML shape. Pointers distinguish "unset" from zero.
type FileConfig struct {
	Bot struct {
		Token      string  `yaml:"token"`
		Username   string  `yaml:"username"`
		AdminChats []int64 `yaml:"adminChats"`
		WebhookURL string  `yaml:"webhookUrl"`
	} `yaml:"bot"`
	Server struct {
		ListenAddr     string   `yaml:"listenAddr"`
		MetricsAddr    string   `yaml:"metricsAddr"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`
	Tools struct {
		YtDlp   string `yaml:"ytDlp"`
		Ffmpeg  string `yaml:"ffmpeg"`
		Cookies string `yaml:"cookies"`
	} `yaml:"tools"`
	Storage struct {
		TempDir    string `yaml:"tempDir"`
		ResultsDir string `yaml:"resultsDir"`
		ResultTTL  string `yaml:"resultTtl"`
	} `yaml:"storage"`
	Limits struct {
		MaxFileSizeBytes   *int64   `yaml:"maxFileSizeBytes"`
		DownloadTimeout    string   `yaml:"downloadTimeout"`
		StallTimeout       string   `yaml:"stallTimeout"`
		MetadataTimeout    string   `yaml:"metadataTimeout"`
		SessionTTL         string   `yaml:"sessionTtl"`
		SweepInterval      string   `yaml:"sweepInterval"`
		MaxConcurrentJobs  *int     `yaml:"maxConcurrentJobs"`
		AllowedVideoHosts  []string `yaml:"allowedVideoHosts"`
		RateLimitPerMinute *int     `yaml:"rateLimitPerMinute"`
	} `yaml:"limits"`
	Redis     *RedisConfig     `yaml:"redis"`
	Telemetry *TelemetryConfig `yaml:"telemetry"`
	LogLevel  string           `yaml:"logLevel"`
}

// Tools returns the external binary settings.
func (c AppConfig) Tools() extractor.Tools {
	return extractor.Tools{
		YtDlpPath:   c.YtDlpPath,
		FfmpegPath:  c.FfmpegPath,
		CookiesFile: c.CookiesFile,
		WorkDir:     c.TempDir,
	}
}

// JobsConfig projects the snapshot the orchestrator reads once per job.
func (c AppConfig) JobsConfig() jobs.Config {
	return jobs.Config{
		Tools:           c.Tools(),
		ScratchDir:      c.TempDir,
		MaxBytes:        c.MaxFileSizeBytes,
		DownloadTimeout: c.DownloadTimeout,
		StallTimeout:    c.StallTimeout,
		AllowedHosts:    c.AllowedVideoHosts,
	}
}

// BotEnabled reports whether the chat surface is configured.
func (c AppConfig) BotEnabled() bool {
	return c.BotToken != ""
}
