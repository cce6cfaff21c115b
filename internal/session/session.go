// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package session keeps the per-identity conversation state between metadata
// lookup and format confirmation.
package session

import (
	"time"

	"github.com/ManuGH/ytaudio/internal/format"
	"github.com/ManuGH/ytaudio/internal/media"
)

// State of a session.
type State string

const (
	AwaitingFormatSelection State = "awaiting_format_selection"
	Downloading             State = "downloading"
)

// DefaultTTL is the age after which a session expires.
const DefaultTTL = 30 * time.Minute

// Session is a value snapshot. The Store owns the live record; callers only
// ever see copies and pass the identity across job boundaries.
type Session struct {
	Identity   string
	URL        string
	Descriptor media.Descriptor
	State      State
	Tier       format.Tier // zero until State is Downloading
	CreatedAt  time.Time

	// Seq is assigned by the Store on Put and identifies this incarnation
	// of the identity's session.
	Seq uint64
}

// HasTier reports whether a tier was selected.
func (s Session) HasTier() bool {
	return s.Tier.ID != ""
}

// Age returns how long ago the session was created.
func (s Session) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}
