// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package extractor drives yt-dlp: metadata lookup, download command
// construction and output classification.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/ytaudio/internal/log"
	"github.com/ManuGH/ytaudio/internal/media"
	"github.com/ManuGH/ytaudio/internal/metrics"
	"github.com/ManuGH/ytaudio/internal/process"
)

// DefaultMetadataTimeout bounds a metadata lookup.
const DefaultMetadataTimeout = 60 * time.Second

// The dump for a long video lists hundreds of formats on one line.
const metadataMaxLineBytes = 16 << 20

// Fetcher resolves URLs to descriptors. Concurrent lookups for the same URL
// share one process.
type Fetcher struct {
	exec    process.Executor
	timeout time.Duration
	group   singleflight.Group
}

// NewFetcher builds a Fetcher on exec. timeout <= 0 selects the default.
func NewFetcher(exec process.Executor, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultMetadataTimeout
	}
	return &Fetcher{exec: exec, timeout: timeout}
}

// Fetch runs the metadata-only invocation for url and parses the result.
//
// Errors: ErrUnavailable (as *UnavailableError) when the tool reports the
// resource inaccessible, ErrMetadata for unusable output, and the process
// package errors for launch, timeout and exit failures.
func (f *Fetcher) Fetch(ctx context.Context, tools Tools, url string) (media.Descriptor, error) {
	key := tools.CookiesFile + "\x00" + url
	ch := f.group.DoChan(key, func() (any, error) {
		// Shared by every waiter, so one caller's cancellation must not
		// abort the lookup for the others.
		return f.fetch(context.WithoutCancel(ctx), tools, url)
	})

	select {
	case <-ctx.Done():
		return media.Descriptor{}, fmt.Errorf("metadata for %s: %w", url, ctx.Err())
	case res := <-ch:
		if res.Shared {
			metrics.IncMetadataCoalesced()
		}
		if res.Err != nil {
			return media.Descriptor{}, res.Err
		}
		return res.Val.(media.Descriptor), nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, tools Tools, url string) (media.Descriptor, error) {
	logger := log.WithComponentFromContext(ctx, "extractor")
	start := time.Now()

	out, err := f.exec.Run(ctx, process.Spec{
		Args:         MetadataArgs(tools, url),
		Dir:          tools.WorkDir,
		Timeout:      f.timeout,
		MaxLines:     64,
		MaxLineBytes: metadataMaxLineBytes,
	})
	if err != nil {
		if errors.Is(err, process.ErrExit) {
			if unavailable := ClassifyOutput(out.Output); unavailable != nil {
				logger.Info().Str(log.FieldEvent, "metadata.unavailable").Err(unavailable).Msg("resource reported unavailable")
				return media.Descriptor{}, unavailable
			}
		}
		logger.Warn().Str(log.FieldEvent, "metadata.failed").Err(err).
			Str("output_tail", tail(out.Output, 512)).Msg("metadata lookup failed")
		return media.Descriptor{}, fmt.Errorf("metadata lookup: %w", err)
	}

	desc, err := Parse(out.Output)
	if err != nil {
		logger.Warn().Str(log.FieldEvent, "metadata.invalid").Err(err).Msg("metadata output rejected")
		return media.Descriptor{}, err
	}

	logger.Info().
		Str(log.FieldEvent, "metadata.fetched").
		Str(log.FieldTitle, desc.Title).
		Int64(log.FieldDuration, desc.DurationSeconds).
		Int(log.FieldBitrate, desc.BitrateKbps).
		Int64(log.FieldBytes, desc.SizeBytes).
		Dur("took", time.Since(start)).
		Msg("metadata fetched")
	return desc, nil
}

// Version is one tool's self-reported version.
type Version struct {
	Tool    string
	Version string
	Err     error
}

// Versions asks yt-dlp and ffmpeg for their versions.
func Versions(ctx context.Context, exec process.Executor, tools Tools) []Version {
	probes := []struct {
		name string
		args []string
	}{
		{"yt-dlp", []string{tools.ytdlp(), "--version"}},
		{"ffmpeg", []string{tools.ffmpeg(), "-version"}},
	}

	out := make([]Version, 0, len(probes))
	for _, p := range probes {
		res, err := exec.Run(ctx, process.Spec{Args: p.args, Dir: tools.WorkDir, Timeout: 10 * time.Second, MaxLines: 32})
		v := Version{Tool: p.name, Err: err}
		if err == nil {
			v.Version = firstLine(res.Output)
		}
		out = append(out, v)
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
