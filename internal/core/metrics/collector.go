// collector.go - Prometheus metrics for the alert notification engine.
//
// Adapted from the teacher's internal/core/metrics/collector.go: same
// Collector-struct-of-registered-metrics shape and NewCollector
// constructor, but the metric set is the notifier's own (dispatch counts,
// registry lookup failures, active repeat tasks) instead of the teacher's
// generic HTTP/CPU/memory/disk/network gauges, which have no counterpart
// in this domain. Collector implements alerts.Metrics.

package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/loganalytics/alertnotify/internal/alerts"
	"github.com/loganalytics/alertnotify/internal/core/config"
)

// Collector is the Prometheus-backed implementation of alerts.Metrics.
type Collector struct {
	config config.MetricsConfig
	logger *zap.SugaredLogger

	dispatchTotal         *prometheus.CounterVec
	registryFailuresTotal prometheus.Counter
	activeRepeatTasks     prometheus.Gauge

	// activeCount mirrors activeRepeatTasks in a form the metrics server's
	// health handler can read directly, since a prometheus.Gauge exposes
	// no getter of its own.
	activeCount int64
}

var _ alerts.Metrics = (*Collector)(nil)

// NewCollector creates and registers the notifier's metrics.
func NewCollector(cfg config.MetricsConfig, logger *zap.SugaredLogger) *Collector {
	c := &Collector{
		config: cfg,
		logger: logger,

		dispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_dispatch_total",
				Help: "Total number of alert notifications dispatched to a sink.",
			},
			[]string{"sink", "state"},
		),
		registryFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "notify_registry_lookup_failures_total",
				Help: "Total number of alert registry lookups that failed during a repeat task.",
			},
		),
		activeRepeatTasks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "notify_active_repeat_tasks",
				Help: "Number of repeat-notification background tasks currently running.",
			},
		),
	}

	prometheus.MustRegister(
		c.dispatchTotal,
		c.registryFailuresTotal,
		c.activeRepeatTasks,
	)

	return c
}

// ObserveDispatch records one dispatch to sink for the given alert state.
func (c *Collector) ObserveDispatch(sink string, state alerts.AlertState) {
	c.dispatchTotal.WithLabelValues(sink, state.String()).Inc()
}

// ObserveRegistryFailure records one failed registry lookup.
func (c *Collector) ObserveRegistryFailure() {
	c.registryFailuresTotal.Inc()
}

// RepeatTaskStarted marks one more repeat task as running.
func (c *Collector) RepeatTaskStarted() {
	c.activeRepeatTasks.Inc()
	atomic.AddInt64(&c.activeCount, 1)
}

// RepeatTaskEnded marks one repeat task as finished.
func (c *Collector) RepeatTaskEnded() {
	c.activeRepeatTasks.Dec()
	atomic.AddInt64(&c.activeCount, -1)
}

// ActiveRepeatTasks returns the current number of running repeat tasks,
// for callers (like the metrics server's health handler) that want the
// value without scraping /metrics.
func (c *Collector) ActiveRepeatTasks() int64 {
	return atomic.LoadInt64(&c.activeCount)
}
