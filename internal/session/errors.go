// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import "errors"

var (
	ErrNoSession          = errors.New("no session for identity")
	ErrExpired            = errors.New("session expired")
	ErrAlreadyDownloading = errors.New("session already downloading")
	ErrSuperseded         = errors.New("session replaced by a newer request")
)
