// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jobs

import (
	"context"
	"sync"

	"github.com/ManuGH/ytaudio/internal/format"
	"github.com/ManuGH/ytaudio/internal/media"
)

// Result describes a finished artifact. Path is only valid for the duration
// of the Delivered call; the file is removed afterwards.
type Result struct {
	Identity    string
	Path        string
	Title       string
	FormatLabel string
	Tier        format.Tier
	Descriptor  media.Descriptor
	SizeBytes   int64
}

// ResultSink receives the outcome of a job. Exactly one of its methods is
// called per job.
type ResultSink interface {
	Delivered(ctx context.Context, res Result) error
	Failed(ctx context.Context, err *Error)
}

// Proposal is the tier choice offered to an interactive caller.
type Proposal struct {
	Identity   string
	URL        string
	Descriptor media.Descriptor
	Offers     []format.Offer
	Default    format.Tier
	MaxBytes   int64

	// Seq identifies the session the offer belongs to; pass it to Confirm.
	Seq uint64
}

// Offerer is implemented by sinks that let a human pick the tier. When the
// sink implements it, a submission ends with Offer and the download starts
// on Confirm. Otherwise the default tier is confirmed automatically.
type Offerer interface {
	Offer(ctx context.Context, p Proposal)
}

// Stage is a progress milestone.
type Stage string

const (
	StageFetchingMetadata Stage = "fetching_metadata"
	StageDownloading      Stage = "downloading"
)

// ProgressReporter is optionally implemented by sinks that surface progress.
type ProgressReporter interface {
	Progress(ctx context.Context, stage Stage)
}

// onceSink guards the exactly-once contract.
type onceSink struct {
	sink ResultSink
	once sync.Once
}

func (s *onceSink) delivered(ctx context.Context, res Result) (called bool, err error) {
	s.once.Do(func() {
		called = true
		err = s.sink.Delivered(ctx, res)
	})
	return called, err
}

func (s *onceSink) failed(ctx context.Context, jerr *Error) bool {
	called := false
	s.once.Do(func() {
		called = true
		s.sink.Failed(ctx, jerr)
	})
	return called
}

func (s *onceSink) offer(ctx context.Context, p Proposal) bool {
	offerer, ok := s.sink.(Offerer)
	if !ok {
		return false
	}
	s.once.Do(func() { offerer.Offer(ctx, p) })
	return true
}

func (s *onceSink) progress(ctx context.Context, stage Stage) {
	if pr, ok := s.sink.(ProgressReporter); ok {
		pr.Progress(ctx, stage)
	}
}
