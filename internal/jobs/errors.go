// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/ytaudio/internal/extractor"
	"github.com/ManuGH/ytaudio/internal/media"
	"github.com/ManuGH/ytaudio/internal/process"
	"github.com/ManuGH/ytaudio/internal/session"
)

// Kind classifies a job failure. Kind implements error so callers can test
// with errors.Is(err, jobs.KindTimeout).
type Kind string

const (
	KindValidation         Kind = "validation"
	KindRateLimited        Kind = "rate_limited"
	KindMetadata           Kind = "metadata"
	KindUnavailable        Kind = "unavailable"
	KindSizeLimitExceeded  Kind = "size_limit_exceeded"
	KindEstimateExceeded   Kind = "estimate_exceeded"
	KindNoSession          Kind = "no_session"
	KindExpired            Kind = "expired"
	KindAlreadyDownloading Kind = "already_downloading"
	KindLaunch             Kind = "launch"
	KindTimeout            Kind = "timeout"
	KindProcessFailure     Kind = "process_failure"
	KindEmptyOutput        Kind = "empty_output"
	KindCanceled           Kind = "canceled"
	KindShuttingDown       Kind = "shutting_down"
	KindInternal           Kind = "internal"
)

func (k Kind) Error() string { return string(k) }

// Error is the only error shape callers and sinks ever see. Message is safe
// to show to a user; the wrapped Err is for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a Kind, or another *Error of the same Kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind
	}
	return false
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Sentinels for the post-download checks.
var (
	errEmptyOutput      = errors.New("output file missing or empty")
	errEstimateExceeded = errors.New("output larger than budget")
)

var unavailableMessages = map[extractor.Reason]string{
	extractor.ReasonPrivate:       "This video is private.",
	extractor.ReasonRegion:        "This video is not available in this region.",
	extractor.ReasonRemoved:       "This video is unavailable or has been removed.",
	extractor.ReasonAgeRestricted: "This video is age-restricted and cannot be downloaded.",
	extractor.ReasonLoginRequired: "This video requires signing in.",
	extractor.ReasonLive:          "Live streams cannot be downloaded.",
}

// Classify maps any internal error onto the job error taxonomy. It is the
// single translation point between failure modes and user-facing messages.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var jerr *Error
	if errors.As(err, &jerr) {
		return jerr
	}

	var unavailable *extractor.UnavailableError
	switch {
	case errors.As(err, &unavailable):
		msg, ok := unavailableMessages[unavailable.Reason]
		if !ok {
			msg = "This video is unavailable."
		}
		return newError(KindUnavailable, msg, err)
	case errors.Is(err, extractor.ErrUnavailable):
		return newError(KindUnavailable, "This video is unavailable.", err)
	case errors.Is(err, extractor.ErrMetadata):
		return newError(KindMetadata, "Could not read video information.", err)
	case errors.Is(err, session.ErrNoSession):
		return newError(KindNoSession, "Nothing to download. Send the link again.", err)
	case errors.Is(err, session.ErrExpired):
		return newError(KindExpired, "This selection has expired. Send the link again.", err)
	case errors.Is(err, session.ErrSuperseded):
		return newError(KindExpired, "This selection is out of date. Use the buttons on the latest message.", err)
	case errors.Is(err, session.ErrAlreadyDownloading):
		return newError(KindAlreadyDownloading, "A download is already in progress.", err)
	case errors.Is(err, extractor.ErrStalled):
		return newError(KindTimeout, "The download stopped making progress. Try again later.", err)
	case errors.Is(err, process.ErrTimeout):
		return newError(KindTimeout, "The download took too long. Try a shorter video.", err)
	case errors.Is(err, process.ErrCanceled), errors.Is(err, context.Canceled):
		return newError(KindCanceled, "The download was canceled.", err)
	case errors.Is(err, process.ErrLaunch):
		return newError(KindLaunch, "The downloader is not available right now. Try again later.", err)
	case errors.Is(err, process.ErrExit):
		return newError(KindProcessFailure, "Could not download the video. Try again later.", err)
	case errors.Is(err, errEmptyOutput):
		return newError(KindEmptyOutput, "The download produced no audio.", err)
	case errors.Is(err, errEstimateExceeded):
		return newError(KindEstimateExceeded, "The audio turned out larger than the size limit. Try a smaller format.", err)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(KindTimeout, "The request took too long.", err)
	}
	return newError(KindInternal, "Something went wrong. Try again later.", err)
}

func sizeLimitExceeded(d media.Descriptor, maxBytes int64) *Error {
	return newError(KindSizeLimitExceeded,
		fmt.Sprintf("The video is too long (%s) to fit in %s even at the lowest quality.",
			d.FormattedDuration(), media.FormatSize(maxBytes)),
		nil)
}

func validationError(message string) *Error {
	return newError(KindValidation, message, nil)
}

// RateLimited builds the error transports report when a submission is throttled.
func RateLimited() *Error {
	return newError(KindRateLimited, "Too many requests. Wait a minute and try again.", nil)
}
