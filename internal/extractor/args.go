// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package extractor

import (
	"fmt"

	"github.com/ManuGH/ytaudio/internal/format"
)

// Tools is the read-only tool configuration for one job.
type Tools struct {
	YtDlpPath   string
	FfmpegPath  string
	CookiesFile string // optional
	WorkDir     string // scratch dir, used as the working directory of every invocation
}

func (t Tools) ytdlp() string {
	if t.YtDlpPath == "" {
		return "yt-dlp"
	}
	return t.YtDlpPath
}

func (t Tools) ffmpeg() string {
	if t.FfmpegPath == "" {
		return "ffmpeg"
	}
	return t.FfmpegPath
}

func (t Tools) cookies(args []string) []string {
	if t.CookiesFile == "" {
		return args
	}
	return append(args, "--cookies", t.CookiesFile)
}

// MetadataArgs builds the metadata-only invocation.
func MetadataArgs(t Tools, url string) []string {
	args := []string{
		t.ytdlp(),
		"--dump-json",
		"--no-warnings",
		"--no-playlist",
		"--extractor-args", "youtube:skip=dash",
	}
	args = t.cookies(args)
	return append(args, url)
}

// DownloadArgs builds the download invocation for tier. output is passed to
// -o verbatim; for lossy tiers it should be a template ending in ".%(ext)s"
// so the extracted audio lands next to it with the tier's extension.
func DownloadArgs(t Tools, url string, tier format.Tier, output string) []string {
	args := []string{
		t.ytdlp(),
		"--no-warnings",
		"--no-playlist",
		"--quiet",
		"--force-overwrites",
		"--progress", "--newline",
		"--progress-template", ProgressTemplate,
	}
	args = t.cookies(args)
	args = append(args, "--ffmpeg-location", t.ffmpeg(), "-f", "bestaudio")

	if !tier.IsOriginal() {
		args = append(args,
			"-x",
			"--audio-format", tier.Container,
			"--postprocessor-args", fmt.Sprintf("ExtractAudio:-c:a %s -b:a %dk", tier.Codec, tier.BitrateKbps),
		)
	}
	return append(args, "-o", output, url)
}

// OutputTemplate returns the -o value for a job whose claimed output file
// has the given stem (path without extension) and final path.
func OutputTemplate(tier format.Tier, stem, finalPath string) string {
	if tier.IsOriginal() {
		return finalPath
	}
	return stem + ".%(ext)s"
}
