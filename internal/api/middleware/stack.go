// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package middleware provides the HTTP ingress stack.
package middleware

import (
	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/ytaudio/internal/log"
)

// StackConfig selects the cross-cutting middleware.
type StackConfig struct {
	AllowedOrigins []string
	EnableCORS     bool

	EnableSecurityHeaders bool

	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	// RequestsPerMinute caps requests per client IP; 0 disables it.
	RequestsPerMinute int
}

// NewRouter constructs a chi router with the stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the middleware in order, outermost first.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	if cfg.EnableCORS {
		r.Use(CORS(cfg.AllowedOrigins))
	}
	if cfg.EnableSecurityHeaders {
		r.Use(SecurityHeaders)
	}
	if cfg.EnableMetrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(log.Middleware())
	}
	if cfg.RequestsPerMinute > 0 {
		r.Use(APIRateLimit(cfg.RequestsPerMinute))
	}
}
