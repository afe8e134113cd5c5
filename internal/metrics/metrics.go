package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	browserLaunches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "browserboot",
			Subsystem: "browser",
			Name:      "launches_total",
			Help:      "Number of browser processes spawned by the orchestrator.",
		}, []string{"mode"},
	)
	browserAdoptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "browserboot",
			Subsystem: "browser",
			Name:      "adoptions_total",
			Help:      "Number of already-running browsers adopted instead of spawned.",
		}, []string{"mode"},
	)
	gateOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "browserboot",
			Subsystem: "gate",
			Name:      "outcomes_total",
			Help:      "Readiness gate terminal results.",
		}, []string{"result"},
	)
	gateWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "browserboot",
			Subsystem: "gate",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for the debug endpoint to become ready.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "browserboot",
			Subsystem: "requests",
			Name:      "total",
			Help:      "Requests by terminal status.",
		}, []string{"status"},
	)
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "browserboot",
			Subsystem: "requests",
			Name:      "queue_depth",
			Help:      "Requests currently waiting for the execution slot.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{browserLaunches, browserAdoptions, gateOutcomes, gateWaitSeconds, requestsTotal, queueDepth}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler serving Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncLaunch(mode string) {
	if regOK.Load() {
		browserLaunches.WithLabelValues(mode).Inc()
	}
}

func IncAdoption(mode string) {
	if regOK.Load() {
		browserAdoptions.WithLabelValues(mode).Inc()
	}
}

func IncGateOutcome(result string) {
	if regOK.Load() {
		gateOutcomes.WithLabelValues(result).Inc()
	}
}

func ObserveGateWait(seconds float64) {
	if regOK.Load() {
		gateWaitSeconds.Observe(seconds)
	}
}

func IncRequest(status string) {
	if regOK.Load() {
		requestsTotal.WithLabelValues(status).Inc()
	}
}

func SetQueueDepth(n int) {
	if regOK.Load() {
		queueDepth.Set(float64(n))
	}
}
