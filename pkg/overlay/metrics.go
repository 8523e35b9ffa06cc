package overlay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures overlay metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "stackkit").
	Namespace string

	// Subsystem is the metrics subsystem (default: "overlay").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for load duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures overlay metrics.
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

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegisterer sets the Prometheus registry.
func WithRegisterer(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "stackkit",
		Subsystem: "overlay",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics collects overlay activity. A nil *Metrics records nothing.
//
// Metrics collected:
//   - stackkit_overlay_opens_total: entries opened, by key
//   - stackkit_overlay_closes_total: entries closed, by key
//   - stackkit_overlay_rejected_total: opens refused, by key and reason
//   - stackkit_overlay_present: entries currently present across stacks
//   - stackkit_overlay_load_duration_seconds: component loads, by key and status
//   - stackkit_overlay_render_failures_total: renders that cleared the stack
type Metrics struct {
	opens          *prometheus.CounterVec
	closes         *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	present        prometheus.Gauge
	loadDuration   *prometheus.HistogramVec
	renderFailures prometheus.Counter
}

// NewMetrics registers overlay metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		opens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "opens_total",
			Help:        "Total number of overlays opened",
			ConstLabels: config.ConstLabels,
		}, []string{"key"}),

		closes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "closes_total",
			Help:        "Total number of overlays closed",
			ConstLabels: config.ConstLabels,
		}, []string{"key"}),

		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "rejected_total",
			Help:        "Total number of opens refused by limit or duplicate policy",
			ConstLabels: config.ConstLabels,
		}, []string{"key", "reason"}),

		present: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "present",
			Help:        "Number of overlays currently present",
			ConstLabels: config.ConstLabels,
		}),

		loadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "load_duration_seconds",
			Help:        "Overlay component load duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"key", "status"}),

		renderFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_failures_total",
			Help:        "Total number of renders that failed and cleared the stack",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) opened(key string) {
	if m == nil {
		return
	}
	m.opens.WithLabelValues(key).Inc()
	m.present.Inc()
}

func (m *Metrics) closed(key string) {
	if m == nil {
		return
	}
	m.closes.WithLabelValues(key).Inc()
	m.present.Dec()
}

func (m *Metrics) reject(key, reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(key, reason).Inc()
}

func (m *Metrics) loaded(key string, seconds float64, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.loadDuration.WithLabelValues(key, status).Observe(seconds)
}

func (m *Metrics) renderFailed() {
	if m == nil {
		return
	}
	m.renderFailures.Inc()
}
