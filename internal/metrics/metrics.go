package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "policygate"

// Check results recorded by RecordCheck.
const (
	ResultThrottled = "throttled"
	ResultUnchanged = "unchanged"
	ResultSynced    = "synced"
	ResultFailed    = "failed"
)

// SyncMetrics tracks repository refresh activity.
//
// Metrics:
//   - policygate_sync_checks_total: refresh attempts by result
//   - policygate_sync_duration_seconds: duration of episodes that downloaded an archive
//   - policygate_sync_last_success_timestamp_seconds: unix time of the last materialized generation
//
// A nil *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	checksTotal *prometheus.CounterVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
}

// NewSyncMetrics creates and registers sync metrics with the provided registry.
func NewSyncMetrics(registry prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "checks_total",
				Help:      "Total number of repository refresh attempts by result",
			},
			[]string{"result"},
		),

		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "duration_seconds",
				Help:      "Time spent downloading and materializing a repository snapshot",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful materialization",
			},
		),
	}

	registry.MustRegister(m.checksTotal, m.duration, m.lastSuccess)

	return m
}

// RecordCheck counts one refresh attempt.
func (m *SyncMetrics) RecordCheck(result string) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(result).Inc()
}

// RecordSync records a completed materialization.
func (m *SyncMetrics) RecordSync(d time.Duration, at time.Time) {
	if m == nil {
		return
	}
	m.duration.Observe(d.Seconds())
	m.lastSuccess.Set(float64(at.Unix()))
}
