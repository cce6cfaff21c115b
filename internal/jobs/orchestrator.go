// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package jobs coordinates a submission from URL to delivered audio: URL
// validation, metadata lookup, tier selection, session admission, the
// download process and result routing.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/ytaudio/internal/extractor"
	"github.com/ManuGH/ytaudio/internal/format"
	"github.com/ManuGH/ytaudio/internal/log"
	"github.com/ManuGH/ytaudio/internal/media"
	"github.com/ManuGH/ytaudio/internal/metrics"
	"github.com/ManuGH/ytaudio/internal/process"
	"github.com/ManuGH/ytaudio/internal/session"
	"github.com/ManuGH/ytaudio/internal/telemetry"
)

// Config is the per-job snapshot of settings. It is read once when a job
// starts and never mutated while the job runs.
type Config struct {
	Tools           extractor.Tools
	ScratchDir      string
	MaxBytes        int64
	DownloadTimeout time.Duration
	// StallTimeout aborts a transfer that reports no progress for this
	// long. Zero disables the watchdog.
	StallTimeout time.Duration
	AllowedHosts []string
	MaxURLLength int
}

// MetadataFetcher resolves a URL into a descriptor.
type MetadataFetcher interface {
	Fetch(ctx context.Context, tools extractor.Tools, url string) (media.Descriptor, error)
}

// Deps wires an Orchestrator.
type Deps struct {
	Config   func() Config
	Fetcher  MetadataFetcher
	Executor process.Executor
	Sessions *session.Store
	Pool     *Pool
}

// Validate reports missing dependencies.
func (d Deps) Validate() error {
	var errs []error
	if d.Config == nil {
		errs = append(errs, errors.New("config source is required"))
	}
	if d.Fetcher == nil {
		errs = append(errs, errors.New("metadata fetcher is required"))
	}
	if d.Executor == nil {
		errs = append(errs, errors.New("executor is required"))
	}
	if d.Sessions == nil {
		errs = append(errs, errors.New("session store is required"))
	}
	if d.Pool == nil {
		errs = append(errs, errors.New("pool is required"))
	}
	return errors.Join(errs...)
}

// Orchestrator is safe for concurrent use.
type Orchestrator struct {
	config   func() Config
	fetcher  MetadataFetcher
	exec     process.Executor
	sessions *session.Store
	pool     *Pool
	tracer   trace.Tracer
}

// New creates an Orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("jobs: %w", err)
	}
	return &Orchestrator{
		config:   deps.Config,
		fetcher:  deps.Fetcher,
		exec:     deps.Executor,
		sessions: deps.Sessions,
		pool:     deps.Pool,
		tracer:   telemetry.Tracer("ytaudio/jobs"),
	}, nil
}

// SubmitOptions tunes a submission.
type SubmitOptions struct {
	// Tier forces a tier instead of the automatic choice. It must still fit
	// the budget.
	Tier format.ID
}

// Submit validates rawURL and starts the metadata job for identity. Invalid
// input is returned synchronously as *Error and the sink is not called.
// Otherwise the sink receives exactly one outcome (or an offer, see Offerer).
func (o *Orchestrator) Submit(ctx context.Context, identity, rawURL string, opts SubmitOptions, sink ResultSink) error {
	cfg := o.config()
	url, err := ValidateURL(rawURL, cfg.AllowedHosts, cfg.MaxURLLength)
	if err != nil {
		return err
	}
	if opts.Tier != "" {
		if _, ok := format.Lookup(string(opts.Tier)); !ok {
			return validationError(fmt.Sprintf("Unknown format %q.", opts.Tier))
		}
	}

	ctx = jobContext(ctx, identity)
	guarded := &onceSink{sink: sink}
	if err := o.pool.Go(ctx, func(ctx context.Context) {
		if sess, proceed := o.runMetadata(ctx, cfg, identity, url, opts, guarded); proceed {
			o.runDownload(ctx, cfg, sess, guarded)
		}
	}); err != nil {
		return newError(KindShuttingDown, "The service is restarting. Try again shortly.", err)
	}
	return nil
}

// Confirm selects tierID for identity's pending session and starts the
// download. seq is the Proposal.Seq the choice answers; 0 accepts whichever
// session is pending. Session protocol violations (NoSession, Expired,
// AlreadyDownloading, an offer replaced by a newer request) and a tier that
// does not fit are returned synchronously as *Error; no job is started then.
func (o *Orchestrator) Confirm(ctx context.Context, identity, tierID string, seq uint64, sink ResultSink) error {
	tier, ok := format.Lookup(tierID)
	if !ok {
		return validationError(fmt.Sprintf("Unknown format %q.", tierID))
	}
	cfg := o.config()

	if pending, ok := o.sessions.Get(identity); ok && pending.State == session.AwaitingFormatSelection &&
		(seq == 0 || pending.Seq == seq) {
		if !format.Fits(tier, pending.Descriptor, cfg.MaxBytes) {
			return newError(KindSizeLimitExceeded,
				fmt.Sprintf("%s does not fit in %s for this video.", tier.Label, media.FormatSize(cfg.MaxBytes)), nil)
		}
	}

	sess, err := o.sessions.TransitionIfCurrent(identity, seq, tier)
	if err != nil {
		return Classify(err)
	}

	ctx = jobContext(ctx, identity)
	guarded := &onceSink{sink: sink}
	if err := o.pool.Go(ctx, func(ctx context.Context) {
		o.runDownload(ctx, cfg, sess, guarded)
	}); err != nil {
		o.sessions.RemoveIf(identity, sess.Seq)
		return newError(KindShuttingDown, "The service is restarting. Try again shortly.", err)
	}
	return nil
}

// Versions reports the external tool versions.
func (o *Orchestrator) Versions(ctx context.Context) []extractor.Version {
	return extractor.Versions(ctx, o.exec, o.config().Tools)
}

// MaxBytes returns the current budget.
func (o *Orchestrator) MaxBytes() int64 {
	return o.config().MaxBytes
}

// Shutdown stops accepting work and waits for running jobs; see Pool.Shutdown.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	return o.pool.Shutdown(ctx)
}

func jobContext(ctx context.Context, identity string) context.Context {
	ctx = log.ContextWithJobID(ctx, uuid.NewString())
	return log.ContextWithIdentity(ctx, identity)
}

// runMetadata performs steps up to admission. It returns the admitted session
// and true when the download should follow immediately.
func (o *Orchestrator) runMetadata(ctx context.Context, cfg Config, identity, url string, opts SubmitOptions, sink *onceSink) (session.Session, bool) {
	logger := log.WithComponentFromContext(ctx, "jobs")
	ctx, span := o.tracer.Start(ctx, "jobs.metadata",
		trace.WithAttributes(telemetry.JobAttributes("metadata", identity, url)...))
	start := time.Now()
	metrics.JobStarted("metadata")

	var failure *Error
	defer func() {
		if r := recover(); r != nil {
			failure = newError(KindInternal, "Something went wrong. Try again later.", fmt.Errorf("panic: %v", r))
			o.fail(ctx, logger, sink, failure)
		}
		kind := ""
		if failure != nil {
			kind = string(failure.Kind)
		}
		telemetry.EndWithError(span, errorOrNil(failure), kind)
		metrics.JobFinished("metadata", outcome(failure), time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		failure = Classify(err)
		o.fail(ctx, logger, sink, failure)
		return session.Session{}, false
	}

	sink.progress(ctx, StageFetchingMetadata)
	desc, err := o.fetcher.Fetch(ctx, cfg.Tools, url)
	if err != nil {
		failure = Classify(err)
		o.fail(ctx, logger, sink, failure)
		return session.Session{}, false
	}
	span.SetAttributes(telemetry.MediaAttributes(desc.DurationSeconds, desc.BitrateKbps)...)

	tier, ok := format.Select(desc, cfg.MaxBytes)
	if !ok {
		failure = sizeLimitExceeded(desc, cfg.MaxBytes)
		o.fail(ctx, logger, sink, failure)
		return session.Session{}, false
	}

	sess := o.sessions.Put(session.Session{Identity: identity, URL: url, Descriptor: desc})
	logger.Info().
		Str(log.FieldEvent, "session.created").
		Str(log.FieldTitle, desc.Title).
		Str(log.FieldTier, string(tier.ID)).
		Msg("session awaiting format selection")

	if opts.Tier != "" {
		explicit, _ := format.Lookup(string(opts.Tier))
		if !format.Fits(explicit, desc, cfg.MaxBytes) {
			o.sessions.RemoveIf(identity, sess.Seq)
			failure = newError(KindSizeLimitExceeded,
				fmt.Sprintf("%s does not fit in %s for this video.", explicit.Label, media.FormatSize(cfg.MaxBytes)), nil)
			o.fail(ctx, logger, sink, failure)
			return session.Session{}, false
		}
		tier = explicit
	} else if sink.offer(ctx, Proposal{
		Identity:   identity,
		URL:        url,
		Descriptor: desc,
		Offers:     format.Offers(desc, cfg.MaxBytes),
		Default:    tier,
		MaxBytes:   cfg.MaxBytes,
		Seq:        sess.Seq,
	}) {
		logger.Info().Str(log.FieldEvent, "offer.sent").Msg("tier offer sent")
		return session.Session{}, false
	}

	sess, err = o.sessions.TransitionIfCurrent(identity, sess.Seq, tier)
	if err != nil {
		failure = Classify(err)
		o.fail(ctx, logger, sink, failure)
		return session.Session{}, false
	}
	return sess, true
}

func (o *Orchestrator) fail(ctx context.Context, logger zerolog.Logger, sink *onceSink, jerr *Error) {
	evt := logger.Warn()
	if jerr.Kind == KindInternal {
		evt = logger.Error()
	}
	evt.Str(log.FieldEvent, "job.failed").
		Str(log.FieldErrorKind, string(jerr.Kind)).
		AnErr("cause", jerr.Err).
		Msg(jerr.Message)
	sink.failed(ctx, jerr)
}

func outcome(jerr *Error) string {
	if jerr == nil {
		return "ok"
	}
	return string(jerr.Kind)
}

func errorOrNil(jerr *Error) error {
	if jerr == nil {
		return nil
	}
	return jerr
}
