// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jobs

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// DefaultMaxURLLength bounds accepted URLs.
const DefaultMaxURLLength = 200

// DefaultHosts is the host allow-list used when none is configured.
var DefaultHosts = []string{"youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be"}

var videoID = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ValidateURL checks raw syntactically: http(s), bounded length, host in
// hosts and a watch, shorts or short-link path carrying an 11 character
// video id. It returns the trimmed URL.
func ValidateURL(raw string, hosts []string, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxURLLength
	}
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", validationError("Send a YouTube link.")
	}
	if len(raw) > maxLen {
		return "", validationError("The link is too long.")
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.User != nil {
		return "", validationError("That does not look like a YouTube link.")
	}
	host := strings.ToLower(u.Hostname())
	if !slices.Contains(hosts, host) {
		return "", validationError("Only YouTube links are supported.")
	}
	if !videoID.MatchString(extractID(host, u)) {
		return "", validationError("That does not look like a YouTube video link.")
	}
	return raw, nil
}

func extractID(host string, u *url.URL) string {
	if host == "youtu.be" {
		return strings.Trim(u.Path, "/")
	}
	switch {
	case u.Path == "/watch":
		return u.Query().Get("v")
	case strings.HasPrefix(u.Path, "/shorts/"):
		return strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/")
	}
	return ""
}
