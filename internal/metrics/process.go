// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	procTerminate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytaudio_proc_terminate_total",
		Help: "Signals sent to external tool process groups",
	}, []string{"signal", "outcome"}) // outcome=sent|esrch|error

	procRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytaudio_proc_runs_total",
		Help: "External tool invocations by tool and result",
	}, []string{"tool", "result"}) // result=ok|exit|timeout|canceled|launch
)

// IncProcTerminate counts a termination signal.
func IncProcTerminate(signal, outcome string) {
	procTerminate.WithLabelValues(signal, outcome).Inc()
}

// IncProcRun counts a finished external tool run.
func IncProcRun(tool, result string) {
	procRuns.WithLabelValues(tool, result).Inc()
}
