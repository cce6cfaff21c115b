// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/ytaudio/internal/log"
)

// parseEnv reads key and converts it with parse. Unset or empty variables
// and parse failures yield def; the chosen source is logged at debug level.
func parseEnv[T any](key string, def T, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().Str("key", key).Interface("default", def).Str("source", "default").Msg("using default value")
		return def
	}
	out, err := parse(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Interface("default", def).Msg("invalid environment variable, using default")
		return def
	}
	evt := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitive(key) {
		evt = evt.Bool("sensitive", true)
	} else {
		evt = evt.Str("value", v)
	}
	evt.Msg("using environment variable")
	return out
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "token") || strings.Contains(k, "password")
}

// ParseString reads a string from the environment or returns def.
func ParseString(key, def string) string {
	return parseEnv(key, def, func(s string) (string, error) { return s, nil })
}

// ParseInt reads an integer from the environment or returns def.
func ParseInt(key string, def int) int {
	return parseEnv(key, def, strconv.Atoi)
}

// ParseInt64 reads a 64-bit integer from the environment or returns def.
func ParseInt64(key string, def int64) int64 {
	return parseEnv(key, def, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

// ParseFloat reads a float64 from the environment or returns def.
func ParseFloat(key string, def float64) float64 {
	return parseEnv(key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// ParseBool accepts true/false, 1/0 and yes/no (case-insensitive).
func ParseBool(key string, def bool) bool {
	return parseEnv(key, def, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, strconv.ErrSyntax
	})
}

// ParseDuration reads a Go duration ("30m") from the environment.
func ParseDuration(key string, def time.Duration) time.Duration {
	return parseEnv(key, def, time.ParseDuration)
}

// ParseSeconds reads a whole number of seconds from the environment.
func ParseSeconds(key string, def time.Duration) time.Duration {
	return parseEnv(key, def, func(s string) (time.Duration, error) {
		n, err := strconv.Atoi(s)
		return time.Duration(n) * time.Second, err
	})
}

// ParseList reads a comma separated list, dropping blanks.
func ParseList(key string, def []string) []string {
	return parseEnv(key, def, func(s string) ([]string, error) {
		return splitList(s), nil
	})
}

// ParseInt64List reads a comma separated list of integers.
func ParseInt64List(key string, def []int64) []int64 {
	return parseEnv(key, def, func(s string) ([]int64, error) {
		var out []int64
		for _, f := range splitList(s) {
			n, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	})
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
