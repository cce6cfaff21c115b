// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ytaudio_sessions_active",
		Help: "Sessions currently held in the store",
	})

	sessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytaudio_sessions_expired_total",
		Help: "Sessions removed by the sweeper",
	})

	metadataCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytaudio_metadata_coalesced_total",
		Help: "Metadata lookups served by an in-flight fetch for the same URL",
	})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytaudio_rate_limited_total",
		Help: "Requests rejected by the per-identity limiter",
	}, []string{"surface"}) // surface=chat|web

	configReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytaudio_config_reloads_total",
		Help: "Configuration reload attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure
)

// SetSessionsActive publishes the current store size.
func SetSessionsActive(n int) {
	sessionsActive.Set(float64(n))
}

// AddSessionsExpired counts sessions dropped by a sweep.
func AddSessionsExpired(n int) {
	sessionsExpired.Add(float64(n))
}

// IncMetadataCoalesced counts a shared metadata fetch.
func IncMetadataCoalesced() {
	metadataCoalesced.Inc()
}

// IncRateLimited counts a rejected request.
func IncRateLimited(surface string) {
	rateLimited.WithLabelValues(surface).Inc()
}

// IncConfigReload counts a reload attempt.
func IncConfigReload(outcome string) {
	configReloads.WithLabelValues(outcome).Inc()
}
