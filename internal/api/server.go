// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api serves the web download API, the Telegram webhook and probes.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/ytaudio/internal/api/middleware"
	"github.com/ManuGH/ytaudio/internal/health"
	"github.com/ManuGH/ytaudio/internal/ratelimit"
	"github.com/ManuGH/ytaudio/internal/tasks"
)

// TaskService is the web task surface; *tasks.Service implements it.
type TaskService interface {
	Submit(ctx context.Context, rawURL, tierID string) (tasks.Task, error)
	Get(ctx context.Context, id string) (tasks.Task, error)
	ResultPath(ctx context.Context, id string) (string, tasks.Task, error)
}

// Config tunes the router.
type Config struct {
	AllowedOrigins []string
	// RequestsPerMinute caps all API requests per client IP.
	RequestsPerMinute int
	// ServeMetrics mounts /metrics on this router.
	ServeMetrics   bool
	TracingService string
}

// Deps are the handlers' collaborators. Webhook may be nil when the bot is
// disabled.
type Deps struct {
	Tasks   TaskService
	Health  *health.Manager
	Webhook http.Handler
	// Limiter caps download submissions per client; nil disables it.
	Limiter *ratelimit.Limiter
}

// Server holds the HTTP handlers.
type Server struct {
	cfg  Config
	deps Deps
}

// New creates a Server.
func New(cfg Config, deps Deps) *Server {
	return &Server{cfg: cfg, deps: deps}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
	})

	if s.deps.Health != nil {
		r.Get("/healthz", s.deps.Health.ServeHealth)
		r.Get("/readyz", s.deps.Health.ServeReady)
	}
	if s.cfg.ServeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	if s.deps.Webhook != nil {
		r.Post("/webhook", s.deps.Webhook.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RequestsPerMinute > 0 {
			r.Use(middleware.APIRateLimit(s.cfg.RequestsPerMinute))
		}
		r.Post("/download", s.handleDownload)
		r.Get("/status/{id}", s.handleStatus)
		r.Get("/files/{id}", s.handleFile)
	})
	return r
}

// MetricsHandler serves Prometheus metrics on a dedicated listener.
func MetricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
