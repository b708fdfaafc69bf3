package gateway

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "gatewire").
	Namespace string

	// Subsystem is the metrics subsystem (default: "gateway").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithMetricsNamespace sets the metrics namespace.
func WithMetricsNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithMetricsRegistry sets the Prometheus registry.
func WithMetricsRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// WithMetricsConstLabels sets constant labels for all metrics.
func WithMetricsConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "gatewire",
		Subsystem: "gateway",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for the gateway.
type metrics struct {
	eventsTotal      *prometheus.CounterVec
	eventsDropped    prometheus.Counter
	heartbeats       prometheus.Counter
	heartbeatAcks    prometheus.Counter
	heartbeatLatency prometheus.Histogram
	reconnectsTotal  *prometheus.CounterVec
	closesTotal      *prometheus.CounterVec
	sessionsReady    prometheus.Gauge
	handlerPanics    prometheus.Counter
	sendErrors       prometheus.Counter
}

// globalMetrics is the singleton metrics instance.
// Created on first call to EnableMetrics().
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Total dispatch events received, by event type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_dropped_total",
			Help:        "Events discarded because the delivery queue was full",
			ConstLabels: config.ConstLabels,
		}),

		heartbeats: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "heartbeats_total",
			Help:        "Heartbeats sent",
			ConstLabels: config.ConstLabels,
		}),

		heartbeatAcks: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "heartbeat_acks_total",
			Help:        "Heartbeat acknowledgements received",
			ConstLabels: config.ConstLabels,
		}),

		heartbeatLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "heartbeat_latency_seconds",
			Help:        "Round-trip time between a heartbeat and its acknowledgement",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.DefBuckets,
		}),

		reconnectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconnects_total",
			Help:        "Reconnect attempts, by trigger",
			ConstLabels: config.ConstLabels,
		}, []string{"trigger"}),

		closesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "closes_total",
			Help:        "Connection closes, by classified action",
			ConstLabels: config.ConstLabels,
		}, []string{"action"}),

		sessionsReady: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sessions_ready",
			Help:        "Sessions currently in the ready state",
			ConstLabels: config.ConstLabels,
		}),

		handlerPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "handler_panics_total",
			Help:        "Panics recovered from event handlers",
			ConstLabels: config.ConstLabels,
		}),

		sendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "send_errors_total",
			Help:        "Outbound frame write failures",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// EnableMetrics registers the gateway's Prometheus metrics. Call once
// at startup; later calls are no-ops. Sessions record into the global
// metrics only after this is called.
//
// Metrics collected:
//   - gatewire_gateway_events_total: Counter of dispatch events by type
//   - gatewire_gateway_events_dropped_total: Counter of dropped events
//   - gatewire_gateway_heartbeats_total: Counter of heartbeats sent
//   - gatewire_gateway_heartbeat_acks_total: Counter of acks received
//   - gatewire_gateway_heartbeat_latency_seconds: Histogram of heartbeat round-trips
//   - gatewire_gateway_reconnects_total: Counter of reconnects by trigger
//   - gatewire_gateway_closes_total: Counter of closes by action
//   - gatewire_gateway_sessions_ready: Gauge of ready sessions
//   - gatewire_gateway_handler_panics_total: Counter of handler panics
//   - gatewire_gateway_send_errors_total: Counter of write failures
func EnableMetrics(opts ...MetricsOption) {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
}

func recordEvent(eventType string) {
	if globalMetrics != nil {
		globalMetrics.eventsTotal.WithLabelValues(eventType).Inc()
	}
}

func recordEventDropped() {
	if globalMetrics != nil {
		globalMetrics.eventsDropped.Inc()
	}
}

func recordHeartbeat() {
	if globalMetrics != nil {
		globalMetrics.heartbeats.Inc()
	}
}

func recordHeartbeatAck() {
	if globalMetrics != nil {
		globalMetrics.heartbeatAcks.Inc()
	}
}

func recordLatency(rtt time.Duration) {
	if globalMetrics != nil {
		globalMetrics.heartbeatLatency.Observe(rtt.Seconds())
	}
}

func recordReconnect(trigger string) {
	if globalMetrics != nil {
		globalMetrics.reconnectsTotal.WithLabelValues(trigger).Inc()
	}
}

func recordClose(action closeAction) {
	if globalMetrics != nil {
		globalMetrics.closesTotal.WithLabelValues(action.String()).Inc()
	}
}

func recordReady(delta float64) {
	if globalMetrics != nil {
		globalMetrics.sessionsReady.Add(delta)
	}
}

func recordHandlerPanic() {
	if globalMetrics != nil {
		globalMetrics.handlerPanics.Inc()
	}
}

func recordSendError() {
	if globalMetrics != nil {
		globalMetrics.sendErrors.Inc()
	}
}
