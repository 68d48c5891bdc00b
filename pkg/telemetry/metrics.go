package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/daireb/reactor/pkg/reactor"
)

// MetricsConfig configures the Prometheus monitor.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "reactor").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for pass duration in seconds.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus monitor.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "reactor",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics exports propagation counters and histograms to Prometheus.
type Metrics struct {
	propagationsTotal  prometheus.Counter
	propagationSeconds prometheus.Histogram
	markedNodes        prometheus.Histogram
	recomputesTotal    prometheus.Counter
	unchangedTotal     prometheus.Counter
	notificationsTotal prometheus.Counter
}

// NewMetrics creates a Prometheus monitor. Registration panics if the
// same registry already holds these collectors; create one Metrics per
// registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		propagationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "propagations_total",
			Help:        "Total number of propagation passes",
			ConstLabels: config.ConstLabels,
		}),
		propagationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "propagation_duration_seconds",
			Help:        "Propagation pass duration in seconds, callbacks included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
		markedNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "marked_nodes",
			Help:        "Derivations flagged stale per pass",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		recomputesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recomputes_total",
			Help:        "Total evaluator runs during commit phases",
			ConstLabels: config.ConstLabels,
		}),
		unchangedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recomputes_unchanged_total",
			Help:        "Recomputations that settled to an equal value",
			ConstLabels: config.ConstLabels,
		}),
		notificationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Observer callbacks fired",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// PropagationBegin implements reactor.Monitor.
func (m *Metrics) PropagationBegin(sources int) {}

// PropagationEnd implements reactor.Monitor.
func (m *Metrics) PropagationEnd(stats reactor.PropagationStats) {
	m.propagationsTotal.Inc()
	m.propagationSeconds.Observe(stats.Duration.Seconds())
	m.markedNodes.Observe(float64(stats.Marked))
	m.recomputesTotal.Add(float64(stats.Recomputed))
	m.unchangedTotal.Add(float64(stats.Unchanged))
	m.notificationsTotal.Add(float64(stats.Notified))
}

var _ reactor.Monitor = (*Metrics)(nil)

// Multi fans telemetry out to several monitors in order.
func Multi(monitors ...reactor.Monitor) reactor.Monitor {
	return multiMonitor(monitors)
}

type multiMonitor []reactor.Monitor

func (m multiMonitor) PropagationBegin(sources int) {
	for _, mon := range m {
		mon.PropagationBegin(sources)
	}
}

func (m multiMonitor) PropagationEnd(stats reactor.PropagationStats) {
	for _, mon := range m {
		mon.PropagationEnd(stats)
	}
}
