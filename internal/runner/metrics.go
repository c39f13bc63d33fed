package runner

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "evald",
			Subsystem: "runner",
			Name:      "runs_total",
			Help:      "Total evaluation runs by final state",
		},
		[]string{"state"},
	)

	samplesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "evald",
			Subsystem: "runner",
			Name:      "samples_total",
			Help:      "Total samples generated across all runs",
		},
	)

	unloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "evald",
			Subsystem: "runner",
			Name:      "unloads_total",
			Help:      "Pre-judge unload hook outcomes",
		},
		[]string{"outcome"}, // released, unsupported, error
	)
)

func init() {
	prometheus.MustRegister(runsTotal, samplesTotal, unloadsTotal)
}
