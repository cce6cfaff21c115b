// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/ytaudio/internal/extractor"
	"github.com/ManuGH/ytaudio/internal/format"
	"github.com/ManuGH/ytaudio/internal/log"
	"github.com/ManuGH/ytaudio/internal/metrics"
	"github.com/ManuGH/ytaudio/internal/process"
	"github.com/ManuGH/ytaudio/internal/session"
	"github.com/ManuGH/ytaudio/internal/telemetry"
)

// tempPrefix names every artifact a job claims in the scratch directory.
const tempPrefix = "yt_"

// runDownload executes the admitted session's download and routes the
// outcome. The session is removed on failure; after success it stays in
// Downloading until it expires or is replaced.
func (o *Orchestrator) runDownload(ctx context.Context, cfg Config, sess session.Session, sink *onceSink) {
	logger := log.WithComponentFromContext(ctx, "jobs").With().
		Str(log.FieldTier, string(sess.Tier.ID)).
		Logger()
	ctx, span := o.tracer.Start(ctx, "jobs.download",
		trace.WithAttributes(telemetry.JobAttributes("download", sess.Identity, sess.URL)...),
		trace.WithAttributes(telemetry.TierAttributes(string(sess.Tier.ID), format.EstimateSize(sess.Tier, sess.Descriptor))...))
	start := time.Now()
	metrics.JobStarted("download")
	metrics.IncTierSelection(string(sess.Tier.ID))

	var failure *Error
	defer func() {
		if r := recover(); r != nil {
			failure = newError(KindInternal, "Something went wrong. Try again later.", fmt.Errorf("panic: %v", r))
		}
		if failure != nil {
			o.sessions.RemoveIf(sess.Identity, sess.Seq)
			o.fail(ctx, logger, sink, failure)
		}
		telemetry.EndWithError(span, errorOrNil(failure), outcome(failure))
		metrics.JobFinished("download", outcome(failure), time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		failure = Classify(err)
		return
	}
	sink.progress(ctx, StageDownloading)

	path, err := claimTemp(cfg.ScratchDir, sess.Tier.Extension(sess.Descriptor))
	if err != nil {
		failure = newError(KindInternal, "Something went wrong. Try again later.", fmt.Errorf("claim temp file: %w", err))
		return
	}
	// Runs before the deferred failure report above, so a sink never sees
	// a path that outlives the job.
	defer removeArtifact(logger, path)

	stem := strings.TrimSuffix(path, filepath.Ext(path))
	args := extractor.DownloadArgs(cfg.Tools, sess.URL, sess.Tier, extractor.OutputTemplate(sess.Tier, stem, path))

	logger.Info().Str(log.FieldEvent, "download.started").Str("path", path).Msg("download started")
	out, err := o.execWatched(ctx, cfg, process.Spec{
		Args:    args,
		Dir:     cfg.ScratchDir,
		Timeout: cfg.DownloadTimeout,
	})
	if err != nil {
		if errors.Is(err, process.ErrExit) {
			if unavailable := extractor.ClassifyOutput(out.Output); unavailable != nil {
				err = fmt.Errorf("%w (%w)", unavailable, err)
			}
		}
		logger.Debug().Str("output", out.Output).Msg("download process output")
		failure = Classify(err)
		return
	}

	size, err := checkArtifact(path, cfg.MaxBytes)
	if err != nil {
		failure = Classify(err)
		return
	}
	span.SetAttributes(attribute.Int64(telemetry.ArtifactBytesKey, size))

	res := Result{
		Identity:    sess.Identity,
		Path:        path,
		Title:       sess.Descriptor.Title,
		FormatLabel: sess.Tier.Label,
		Tier:        sess.Tier,
		Descriptor:  sess.Descriptor,
		SizeBytes:   size,
	}
	called, err := sink.delivered(ctx, res)
	if !called {
		return
	}
	metrics.RecordDelivery(string(sess.Tier.ID), size)
	evt := logger.Info()
	if err != nil {
		evt = logger.Warn().Err(err)
	}
	evt.Str(log.FieldEvent, "download.delivered").
		Int64(log.FieldBytes, size).
		Dur("took", time.Since(start)).
		Msg("artifact handed to sink")
}

// execWatched runs spec under a stall watchdog when cfg enables one. A
// stall cancels the run with extractor.ErrStalled as the cause.
func (o *Orchestrator) execWatched(ctx context.Context, cfg Config, spec process.Spec) (process.Outcome, error) {
	if cfg.StallTimeout <= 0 {
		return o.exec.Run(ctx, spec)
	}
	wd := extractor.NewWatchdog(cfg.StallTimeout, cfg.StallTimeout)
	spec.OnLine = wd.ParseLine

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	watchCtx, stopWatch := context.WithCancel(runCtx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := wd.Run(watchCtx); err != nil {
			cancel(err)
		}
	}()

	out, err := o.exec.Run(runCtx, spec)
	stopWatch()
	<-done
	if err != nil && errors.Is(context.Cause(runCtx), extractor.ErrStalled) && ctx.Err() == nil {
		err = fmt.Errorf("%w after %d bytes: %w", extractor.ErrStalled, wd.BytesSeen(), err)
	}
	return out, err
}

// claimTemp creates a uniquely named, empty file in dir with extension ext.
func claimTemp(dir, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, tempPrefix+"*."+ext)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

// checkArtifact verifies the output exists, is non-empty and fits maxBytes.
func checkArtifact(path string, maxBytes int64) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errEmptyOutput, err)
	}
	if fi.Size() == 0 {
		return 0, errEmptyOutput
	}
	if fi.Size() > maxBytes {
		return fi.Size(), fmt.Errorf("%w: %d > %d bytes", errEstimateExceeded, fi.Size(), maxBytes)
	}
	return fi.Size(), nil
}

// removeArtifact deletes the claimed file and any intermediates the tool
// left next to it (partial downloads, pre-conversion files). Failures are
// logged and counted, never returned.
func removeArtifact(logger zerolog.Logger, path string) {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	leftovers, _ := filepath.Glob(globEscape(stem) + ".*")

	targets := []string{path}
	for _, p := range leftovers {
		if p != path {
			targets = append(targets, p)
		}
	}
	for _, p := range targets {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			metrics.IncTempCleanupFailure()
			logger.Warn().Str(log.FieldEvent, "cleanup.failed").Str("path", p).Err(err).Msg("could not delete temp file")
		}
	}
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(s)
}
