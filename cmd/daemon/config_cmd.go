// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/ytaudio/internal/config"
	"github.com/ManuGH/ytaudio/internal/version"
)

func runConfigCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  ytaudio config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  ytaudio config dump [--file|-f config.yaml] [--format=yaml|json]")
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ytaudio config validate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := strings.TrimSpace(file)
	if _, err := config.NewLoader(path, version.Version).Load(); err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", describeSource(path), err)
		return 1
	}

	fmt.Fprintf(stdout, "%s is valid\n", describeSource(path))
	return 0
}

// runConfigDump prints the effective configuration (defaults + file + env)
// in the file layout, with secrets redacted.
func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ytaudio config dump", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var file, format string
	fs.StringVar(&file, "file", "", "path to YAML configuration file")
	fs.StringVar(&file, "f", "", "path to YAML configuration file (shorthand)")
	fs.StringVar(&format, "format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := strings.TrimSpace(file)
	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", describeSource(path), err)
		return 1
	}

	fileCfg := fileConfigFromAppConfig(cfg)
	redactFileConfigSecrets(&fileCfg)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
			return 1
		}
		_ = enc.Close()
		return 0
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", format)
		return 2
	}
}

func describeSource(path string) string {
	if path == "" {
		return "environment configuration"
	}
	return path
}

func fileConfigFromAppConfig(cfg config.AppConfig) config.FileConfig {
	var fc config.FileConfig

	fc.Bot.Token = cfg.BotToken
	fc.Bot.Username = cfg.BotUsername
	fc.Bot.AdminChats = cfg.AdminChats
	fc.Bot.WebhookURL = cfg.WebhookURL

	fc.Server.ListenAddr = cfg.ListenAddr
	fc.Server.MetricsAddr = cfg.MetricsAddr
	fc.Server.AllowedOrigins = cfg.AllowedOrigins

	fc.Tools.YtDlp = cfg.YtDlpPath
	fc.Tools.Ffmpeg = cfg.FfmpegPath
	fc.Tools.Cookies = cfg.CookiesFile

	fc.Storage.TempDir = cfg.TempDir
	fc.Storage.ResultsDir = cfg.ResultsDir
	fc.Storage.ResultTTL = cfg.ResultTTL.String()

	maxBytes := cfg.MaxFileSizeBytes
	maxJobs := cfg.MaxConcurrentJobs
	perMinute := cfg.RateLimitPerMinute
	fc.Limits.MaxFileSizeBytes = &maxBytes
	fc.Limits.DownloadTimeout = cfg.DownloadTimeout.String()
	fc.Limits.StallTimeout = cfg.StallTimeout.String()
	fc.Limits.MetadataTimeout = cfg.MetadataTimeout.String()
	fc.Limits.SessionTTL = cfg.SessionTTL.String()
	fc.Limits.SweepInterval = cfg.SessionSweepInterval.String()
	fc.Limits.MaxConcurrentJobs = &maxJobs
	fc.Limits.AllowedVideoHosts = cfg.AllowedVideoHosts
	fc.Limits.RateLimitPerMinute = &perMinute

	redis := cfg.Redis
	telemetry := cfg.Telemetry
	fc.Redis = &redis
	fc.Telemetry = &telemetry
	fc.LogLevel = cfg.LogLevel
	return fc
}

func redactFileConfigSecrets(cfg *config.FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.Bot.Token != "" {
		cfg.Bot.Token = "***"
	}
	if cfg.Redis != nil && cfg.Redis.Password != "" {
		cfg.Redis.Password = "***"
	}
}
