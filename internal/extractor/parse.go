// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package extractor

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/ManuGH/ytaudio/internal/media"
)

// Reference stream used when no audio-only stream is listed.
const (
	defaultContainer   = "m4a"
	defaultCodec       = "aac"
	defaultBitrateKbps = 128
	defaultTitle       = "Unknown"
)

type dumpFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	VCodec         string   `json:"vcodec"`
	ACodec         string   `json:"acodec"`
	ABR            *float64 `json:"abr"`
	FileSize       *int64   `json:"filesize"`
	FileSizeApprox *int64   `json:"filesize_approx"`
}

type dump struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Duration *float64     `json:"duration"`
	IsLive   bool         `json:"is_live"`
	Formats  []dumpFormat `json:"formats"`
}

func (f dumpFormat) audioOnly() bool {
	return f.VCodec == "none" && f.ACodec != "" && f.ACodec != "none"
}

func (f dumpFormat) bitrate() int {
	if f.ABR == nil || *f.ABR <= 0 {
		return 0
	}
	return int(math.Round(*f.ABR))
}

func (f dumpFormat) size() int64 {
	if f.FileSize != nil && *f.FileSize > 0 {
		return *f.FileSize
	}
	if f.FileSizeApprox != nil && *f.FileSizeApprox > 0 {
		return *f.FileSizeApprox
	}
	return media.UnknownSize
}

// Parse turns `--dump-json` output into a Descriptor. Non-JSON lines before
// the document (warnings, debug noise) are skipped; the last JSON object
// line is used.
func Parse(output string) (media.Descriptor, error) {
	doc := lastJSONLine(output)
	if doc == "" {
		return media.Descriptor{}, fmt.Errorf("%w: no JSON document in output", ErrMetadata)
	}

	var d dump
	if err := json.Unmarshal([]byte(doc), &d); err != nil {
		return media.Descriptor{}, fmt.Errorf("%w: decode: %v", ErrMetadata, err)
	}
	if d.IsLive {
		return media.Descriptor{}, &UnavailableError{Reason: ReasonLive}
	}

	desc := media.Descriptor{
		ID:          d.ID,
		Title:       strings.TrimSpace(d.Title),
		Container:   defaultContainer,
		Codec:       defaultCodec,
		BitrateKbps: defaultBitrateKbps,
		SizeBytes:   media.UnknownSize,
	}
	if desc.Title == "" {
		desc.Title = defaultTitle
	}
	if d.Duration != nil && *d.Duration > 0 {
		desc.DurationSeconds = int64(math.Round(*d.Duration))
	}

	best := -1
	for i, f := range d.Formats {
		if !f.audioOnly() || f.bitrate() <= 0 {
			continue
		}
		if best < 0 || f.bitrate() > d.Formats[best].bitrate() {
			best = i
		}
	}
	if best >= 0 {
		f := d.Formats[best]
		desc.BitrateKbps = f.bitrate()
		desc.SizeBytes = f.size()
		if f.Ext != "" {
			desc.Container = f.Ext
		}
		desc.Codec = normalizeCodec(f.ACodec)
	}
	return desc, nil
}

func lastJSONLine(output string) string {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "{") {
			return line
		}
	}
	return ""
}

// normalizeCodec maps codec strings like "mp4a.40.2" to their family name.
func normalizeCodec(codec string) string {
	switch {
	case strings.HasPrefix(codec, "mp4a"):
		return "aac"
	case codec == "":
		return defaultCodec
	default:
		return codec
	}
}
