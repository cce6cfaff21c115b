// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by job spans.
const (
	JobKindKey     = "job.kind"
	JobIdentityKey = "job.identity"
	JobOutcomeKey  = "job.outcome"

	MediaURLKey      = "media.url"
	MediaDurationKey = "media.duration_s"
	MediaBitrateKey  = "media.bitrate_kbps"

	TierKey          = "audio.tier"
	TierEstimateKey  = "audio.estimated_bytes"
	ArtifactBytesKey = "audio.bytes"

	ErrorKindKey = "error.kind"
)

// JobAttributes describes a job at span start.
func JobAttributes(kind, identity, url string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobKindKey, kind),
		attribute.String(JobIdentityKey, identity),
		attribute.String(MediaURLKey, url),
	}
}

// MediaAttributes describes the resolved source.
func MediaAttributes(durationSeconds int64, bitrateKbps int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(MediaDurationKey, durationSeconds),
		attribute.Int(MediaBitrateKey, bitrateKbps),
	}
}

// TierAttributes describes the chosen tier.
func TierAttributes(tier string, estimatedBytes int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(TierKey, tier),
		attribute.Int64(TierEstimateKey, estimatedBytes),
	}
}

// EndWithError records a classified failure on span. A nil err marks the
// span ok.
func EndWithError(span trace.Span, err error, kind string) {
	if err == nil {
		span.SetAttributes(attribute.String(JobOutcomeKey, "ok"))
		span.SetStatus(codes.Ok, "")
		span.End()
		return
	}
	span.RecordError(err)
	span.SetAttributes(
		attribute.String(JobOutcomeKey, "error"),
		attribute.String(ErrorKindKey, kind),
	)
	span.SetStatus(codes.Error, kind)
	span.End()
}
