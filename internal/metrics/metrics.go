package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes Prometheus metrics for monitoring runs and the job
// set. A nil *Collector is valid and records nothing, so callers never
// have to branch on whether metrics are enabled.
type Collector struct {
	registry    *prometheus.Registry
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	jobsActive  prometheus.Gauge
	jobsPaused  prometheus.Gauge
}

// NewCollector constructs a collector on a private registry.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streamwatch",
		Subsystem: "monitor",
		Name:      "runs_total",
		Help:      "Collection attempts by platform and outcome.",
	}, []string{"platform", "outcome"})

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "streamwatch",
		Subsystem: "monitor",
		Name:      "run_duration_seconds",
		Help:      "Latency distribution of single collection attempts.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"platform"})

	jobsActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "streamwatch",
		Subsystem: "monitor",
		Name:      "jobs_active",
		Help:      "Number of active monitoring jobs.",
	})

	jobsPaused := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "streamwatch",
		Subsystem: "monitor",
		Name:      "jobs_paused",
		Help:      "Number of paused monitoring jobs.",
	})

	for _, c := range []prometheus.Collector{runsTotal, runDuration, jobsActive, jobsPaused} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:    registry,
		runsTotal:   runsTotal,
		runDuration: runDuration,
		jobsActive:  jobsActive,
		jobsPaused:  jobsPaused,
	}, nil
}

// ObserveRun records one collection attempt.
func (c *Collector) ObserveRun(platform, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(platform, outcome).Inc()
	c.runDuration.WithLabelValues(platform).Observe(d.Seconds())
}

// SetJobCounts publishes the current job-set gauges.
func (c *Collector) SetJobCounts(active, paused int) {
	if c == nil {
		return
	}
	c.jobsActive.Set(float64(active))
	c.jobsPaused.Set(float64(paused))
}

// Handler returns an HTTP handler exposing the registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
