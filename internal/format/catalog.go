// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package format defines the audio quality tiers and the size-driven tier
// selection used before any bytes are downloaded.
package format

import (
	"strings"

	"github.com/ManuGH/ytaudio/internal/media"
)

// ID identifies a tier. The string form is used on the wire (callback data,
// API requests).
type ID string

const (
	Original ID = "ORIGINAL"
	Opus96   ID = "OPUS_96"
	Opus64   ID = "OPUS_64"
	Opus48   ID = "OPUS_48"
)

// Tier is one audio quality option. Tiers are immutable values.
type Tier struct {
	ID          ID
	Label       string
	Codec       string // encoder passed to ffmpeg; empty for Original
	BitrateKbps int    // encode bitrate; 0 for Original
	Container   string // output extension; empty means the source's native one
}

// IsOriginal reports whether the tier passes the source stream through.
func (t Tier) IsOriginal() bool {
	return t.ID == Original
}

// Extension returns the output file extension for d under this tier.
func (t Tier) Extension(d media.Descriptor) string {
	if t.Container != "" {
		return t.Container
	}
	if d.Container != "" {
		return d.Container
	}
	return "m4a"
}

// catalog is the selection order, least to most compressed. Original must
// stay first.
var catalog = [...]Tier{
	{ID: Original, Label: "Original quality"},
	{ID: Opus96, Label: "Opus 96 kbps", Codec: "libopus", BitrateKbps: 96, Container: "opus"},
	{ID: Opus64, Label: "Opus 64 kbps", Codec: "libopus", BitrateKbps: 64, Container: "opus"},
	{ID: Opus48, Label: "Opus 48 kbps", Codec: "libopus", BitrateKbps: 48, Container: "opus"},
}

// Tiers returns the tiers in selection order.
func Tiers() []Tier {
	out := make([]Tier, len(catalog))
	copy(out, catalog[:])
	return out
}

// Lookup finds a tier by ID, ignoring case.
func Lookup(id string) (Tier, bool) {
	want := ID(strings.ToUpper(strings.TrimSpace(id)))
	for _, t := range catalog {
		if t.ID == want {
			return t, true
		}
	}
	return Tier{}, false
}

// Estimate applies the size formula duration * kbps * 1000 / 8. Lossy tiers
// always use their own bitrate; Original uses referenceKbps.
func Estimate(t Tier, durationSeconds int64, referenceKbps int) int64 {
	kbps := int64(t.BitrateKbps)
	if t.IsOriginal() {
		kbps = int64(referenceKbps)
	}
	if durationSeconds <= 0 || kbps <= 0 {
		return 0
	}
	return durationSeconds * kbps * 1000 / 8
}

// EstimateSize estimates the output size of d under t. For Original the
// reported size wins when known.
func EstimateSize(t Tier, d media.Descriptor) int64 {
	if t.IsOriginal() && d.HasKnownSize() {
		return d.SizeBytes
	}
	return Estimate(t, d.DurationSeconds, d.BitrateKbps)
}

// Fits reports whether t's estimate for d is within maxBytes.
func Fits(t Tier, d media.Descriptor, maxBytes int64) bool {
	return EstimateSize(t, d) <= maxBytes
}

// Select returns the first tier in catalog order whose estimate fits
// maxBytes. ok is false when even the most compressed tier is too large.
func Select(d media.Descriptor, maxBytes int64) (tier Tier, ok bool) {
	for _, t := range catalog {
		if Fits(t, d, maxBytes) {
			return t, true
		}
	}
	return Tier{}, false
}
