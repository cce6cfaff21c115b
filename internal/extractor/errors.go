// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package extractor

import (
	"errors"
	"strings"
)

var (
	// ErrMetadata indicates the tool's metadata output could not be used.
	ErrMetadata = errors.New("metadata unavailable")
	// ErrUnavailable indicates the tool reported the resource as inaccessible.
	ErrUnavailable = errors.New("resource unavailable")
)

// Reason refines ErrUnavailable.
type Reason string

const (
	ReasonPrivate       Reason = "private"
	ReasonRegion        Reason = "region"
	ReasonRemoved       Reason = "removed"
	ReasonAgeRestricted Reason = "age_restricted"
	ReasonLoginRequired Reason = "login_required"
	ReasonLive          Reason = "live"
)

// UnavailableError carries the matched reason. It matches ErrUnavailable
// with errors.Is.
type UnavailableError struct {
	Reason Reason
	Line   string // output line that matched
}

func (e *UnavailableError) Error() string {
	return "resource unavailable (" + string(e.Reason) + ")"
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// phrase table, checked in order. yt-dlp has no structured error channel,
// so this is best effort and can misclassify when upstream wording changes.
var phrases = []struct {
	needle string
	reason Reason
}{
	{"private video", ReasonPrivate},
	{"sign in to confirm your age", ReasonAgeRestricted},
	{"age-restricted", ReasonAgeRestricted},
	{"sign in to confirm you", ReasonLoginRequired},
	{"members-only", ReasonLoginRequired},
	{"blocked it in your country", ReasonRegion},
	{"not available in your country", ReasonRegion},
	{"uploader has not made this video available", ReasonRegion},
	{"has been removed", ReasonRemoved},
	{"account associated with this video has been terminated", ReasonRemoved},
	{"this live event will begin", ReasonLive},
	{"video unavailable", ReasonRemoved},
	{"not available", ReasonRegion},
}

// ClassifyOutput scans captured tool output for known availability phrases.
// It returns an *UnavailableError on a match and nil otherwise.
func ClassifyOutput(output string) error {
	if output == "" {
		return nil
	}
	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(line)
		for _, p := range phrases {
			if strings.Contains(lower, p.needle) {
				return &UnavailableError{Reason: p.reason, Line: strings.TrimSpace(line)}
			}
		}
	}
	return nil
}
