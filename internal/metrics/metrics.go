// Package metrics collects provisioning metrics. tierctl exits after every
// run, so instead of serving them the collectors are written to a file for
// the node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vietdv277/tierctl/pkg/types"
)

// Outcomes of a resource step
const (
	OutcomeCreated = "created"
	OutcomeReused  = "reused"
	OutcomeDeleted = "deleted"
	OutcomeFailed  = "failed"
)

// Metrics holds the collectors of one run. A nil *Metrics discards everything.
type Metrics struct {
	Registry *prometheus.Registry

	ResourcesTotal *prometheus.CounterVec
	StepDuration   *prometheus.HistogramVec
	RunSuccess     prometheus.Gauge
	RunTimestamp   prometheus.Gauge
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		ResourcesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tierctl_resources_total",
				Help: "Resources handled by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tierctl_step_duration_seconds",
				Help:    "Duration of provisioning steps in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"step"},
		),

		RunSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tierctl_last_run_success",
				Help: "Whether the last run succeeded (1 = success, 0 = failure)",
			},
		),

		RunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tierctl_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
	}

	m.Registry.MustRegister(m.ResourcesTotal, m.StepDuration, m.RunSuccess, m.RunTimestamp)
	return m
}

// ObserveResource counts a resource as created or reused
func (m *Metrics) ObserveResource(r types.Resource) {
	if m == nil {
		return
	}
	outcome := OutcomeReused
	if r.Created {
		outcome = OutcomeCreated
	}
	m.ResourcesTotal.WithLabelValues(string(r.Kind), outcome).Inc()
}

// ObserveOutcome counts a resource with an explicit outcome
func (m *Metrics) ObserveOutcome(kind types.ResourceKind, outcome string) {
	if m == nil {
		return
	}
	m.ResourcesTotal.WithLabelValues(string(kind), outcome).Inc()
}

// ObserveStep records how long a named step took
func (m *Metrics) ObserveStep(step string, d time.Duration) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// SetResult records the outcome of the run
func (m *Metrics) SetResult(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.RunSuccess.Set(1)
	} else {
		m.RunSuccess.Set(0)
	}
	m.RunTimestamp.SetToCurrentTime()
}

// WriteTextfile writes every collector to path in the text exposition format
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// Timer measures a step
type Timer struct {
	start time.Time
}

// NewTimer starts a timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
