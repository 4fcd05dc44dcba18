// Package metrics exposes Prometheus counters/gauges for the scheduler
// and the admin HTTP surface that serves them.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every counter/gauge the daemon records. Unlike the
// controller-runtime-based collector this is grounded on, registration
// uses a private registry so the admin surface never collides with
// other prometheus users in-process.
type Metrics struct {
	registry *prometheus.Registry

	TasksSubmittedTotal  prometheus.Counter
	TasksFinishedTotal   *prometheus.CounterVec // label: result (finished|failed)
	SchedulerTickSeconds prometheus.Histogram
	GPUsInUse            prometheus.Gauge
	GPUsIgnored          prometheus.Gauge
}

// New builds a Metrics bound to a fresh private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		TasksSubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gavel_tasks_submitted_total",
			Help: "Total number of tasks submitted to the daemon.",
		}),
		TasksFinishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gavel_tasks_finished_total",
			Help: "Total number of tasks that reached a terminal state.",
		}, []string{"result"}),
		SchedulerTickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gavel_scheduler_tick_seconds",
			Help:    "Duration of one scheduler loop iteration.",
			Buckets: prometheus.DefBuckets,
		}),
		GPUsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gavel_gpus_in_use",
			Help: "Number of GPUs currently owned by a queue.",
		}),
		GPUsIgnored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gavel_gpus_ignored",
			Help: "Number of GPUs currently in the ignored set.",
		}),
	}

	registry.MustRegister(
		m.TasksSubmittedTotal,
		m.TasksFinishedTotal,
		m.SchedulerTickSeconds,
		m.GPUsInUse,
		m.GPUsIgnored,
	)
	return m
}

// Registry returns the private prometheus.Registry backing m, for
// wiring into promhttp.HandlerFor.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordTaskSubmitted increments the submission counter.
func (m *Metrics) RecordTaskSubmitted() { m.TasksSubmittedTotal.Inc() }

// RecordTaskTerminal increments the finished counter for the given
// result ("finished" or "failed").
func (m *Metrics) RecordTaskTerminal(result string) {
	m.TasksFinishedTotal.WithLabelValues(result).Inc()
}

// RecordTick observes one scheduler loop iteration's duration in
// seconds.
func (m *Metrics) RecordTick(seconds float64) { m.SchedulerTickSeconds.Observe(seconds) }

// SetGaugeSnapshot updates the point-in-time gauges.
func (m *Metrics) SetGaugeSnapshot(gpusInUse, gpusIgnored int) {
	m.GPUsInUse.Set(float64(gpusInUse))
	m.GPUsIgnored.Set(float64(gpusIgnored))
}
