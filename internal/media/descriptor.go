// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package media holds the immutable description of a remote video's audio.
package media

import "fmt"

// UnknownSize marks a descriptor whose byte size was not reported.
const UnknownSize int64 = -1

// Descriptor is produced once per metadata fetch and shared read-only by every
// later step of a job. Callers must not mutate it.
type Descriptor struct {
	ID              string
	Title           string
	DurationSeconds int64
	Container       string // native extension, e.g. "webm", "m4a"
	Codec           string // native codec, e.g. "opus", "aac"
	BitrateKbps     int    // reference bitrate of the best audio-only stream
	SizeBytes       int64  // UnknownSize when not reported
}

// HasKnownSize reports whether SizeBytes carries a real value.
func (d Descriptor) HasKnownSize() bool {
	return d.SizeBytes > 0
}

// FormattedDuration renders the duration as H:MM:SS, or M:SS under an hour.
func (d Descriptor) FormattedDuration() string {
	return FormatDuration(d.DurationSeconds)
}

// FormatDuration renders seconds as H:MM:SS, or M:SS under an hour.
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatSize renders a byte count in MB with one decimal, or "unknown".
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
}
