// Package metrics exposes the tracker's state to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ledgerops/feetrack/pkg/feetrack"
)

const namespace = "feetrack"

var (
	localLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "local_load_level",
		Help:      "Self-assessed load level, 256 = baseline.",
	})

	remoteLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "remote_load_level",
		Help:      "Highest load level observed from peers, 256 = baseline.",
	})

	clusterLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cluster_load_level",
		Help:      "Load level aggregated from trusted cluster peers, 256 = baseline.",
	})

	loadFactor = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "load_factor",
		Help:      "Current fee multiplier relative to the 256 baseline.",
	})

	raisesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "local_raises_total",
		Help:      "Raise requests by outcome.",
	}, []string{"outcome"}) // "effective" or "debounced"

	lowersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "local_lowers_total",
		Help:      "Lower requests by outcome.",
	}, []string{"outcome"}) // "effective" or "noop"

	scaleErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scale_errors_total",
		Help:      "Fee scaling calls rejected for invalid arguments.",
	})
)

// Observe refreshes the level gauges from one tracker snapshot per gauge.
func Observe(t *feetrack.Tracker) {
	localLevel.Set(float64(t.LocalLevel()))
	remoteLevel.Set(float64(t.RemoteLevel()))
	clusterLevel.Set(float64(t.ClusterLevel()))
	loadFactor.Set(float64(t.LoadFactor()))
}

// RecordRaise counts a raise request and whether it moved the level.
func RecordRaise(changed bool) {
	if changed {
		raisesTotal.WithLabelValues("effective").Inc()
	} else {
		raisesTotal.WithLabelValues("debounced").Inc()
	}
}

// RecordLower counts a lower request and whether it moved the level.
func RecordLower(changed bool) {
	if changed {
		lowersTotal.WithLabelValues("effective").Inc()
	} else {
		lowersTotal.WithLabelValues("noop").Inc()
	}
}

// RecordScaleError counts a rejected scaling call.
func RecordScaleError() {
	scaleErrorsTotal.Inc()
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
