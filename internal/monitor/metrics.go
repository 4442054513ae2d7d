package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	devicesOffline = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fleetpulse",
		Subsystem: "monitor",
		Name:      "devices_offline",
		Help:      "Devices currently classified as offline.",
	})

	resultsReconciled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fleetpulse",
		Subsystem: "monitor",
		Name:      "results_reconciled_total",
		Help:      "Probe results applied by the reconciler.",
	})
)
