// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/ytaudio/internal/jobs"
)

type errorBody struct {
	Error     string `json:"error"`
	ErrorKind string `json:"errorKind,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJobError maps a synchronous rejection to its HTTP status.
func writeJobError(w http.ResponseWriter, err *jobs.Error) {
	writeJSON(w, statusFor(err.Kind), errorBody{Error: err.Message, ErrorKind: string(err.Kind)})
}

func statusFor(kind jobs.Kind) int {
	switch kind {
	case jobs.KindValidation:
		return http.StatusBadRequest
	case jobs.KindRateLimited:
		return http.StatusTooManyRequests
	case jobs.KindShuttingDown:
		return http.StatusServiceUnavailable
	case jobs.KindSizeLimitExceeded:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
