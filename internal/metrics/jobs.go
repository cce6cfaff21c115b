// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics holds the Prometheus collectors exported by the daemon.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ytaudio_jobs_active",
		Help: "Number of jobs currently running by kind",
	}, []string{"kind"}) // kind=metadata|download

	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytaudio_jobs_total",
		Help: "Finished jobs by kind and outcome",
	}, []string{"kind", "outcome"}) // outcome=ok|<error kind>

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ytaudio_job_duration_seconds",
		Help:    "Wall time of finished jobs",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"kind"})

	deliveredBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ytaudio_delivered_bytes",
		Help:    "Size of delivered audio files by tier",
		Buckets: prometheus.ExponentialBuckets(256*1024, 2, 10),
	}, []string{"tier"})

	tierSelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytaudio_tier_selections_total",
		Help: "Confirmed tier selections",
	}, []string{"tier"})

	tempCleanupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytaudio_temp_cleanup_failures_total",
		Help: "Temporary files that could not be removed",
	})
)

// JobStarted marks a job of the given kind as running.
func JobStarted(kind string) {
	jobsActive.WithLabelValues(kind).Inc()
}

// JobFinished records the outcome and duration of a job.
func JobFinished(kind, outcome string, d time.Duration) {
	jobsActive.WithLabelValues(kind).Dec()
	jobsTotal.WithLabelValues(kind, outcome).Inc()
	jobDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// RecordDelivery observes the size of a delivered artifact.
func RecordDelivery(tier string, bytes int64) {
	deliveredBytes.WithLabelValues(tier).Observe(float64(bytes))
}

// IncTierSelection counts a confirmed tier.
func IncTierSelection(tier string) {
	tierSelections.WithLabelValues(tier).Inc()
}

// IncTempCleanupFailure counts a temp file left behind.
func IncTempCleanupFailure() {
	tempCleanupFailures.Inc()
}
