package probe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fleetpulse",
		Subsystem: "probe",
		Name:      "probes_total",
		Help:      "Reachability probes executed, by method and outcome.",
	}, []string{"method", "result"})

	probeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fleetpulse",
		Subsystem: "probe",
		Name:      "duration_seconds",
		Help:      "Time spent executing a single probe.",
		Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10},
	}, []string{"method"})
)
