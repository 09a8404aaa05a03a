// Package prometheus exposes the bus and consumer metrics as prometheus collectors.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hellofresh/cqrs"
)

const namespace = "cqrs"

// Ensure that we satisfy the cqrs.Metrics interface
var _ cqrs.Metrics = &Metrics{}

// Metrics is an object for exposing prometheus metrics
type Metrics struct {
	commandDuration    *prometheus.HistogramVec
	publishDuration    *prometheus.HistogramVec
	receivedCounter    *prometheus.CounterVec
	handleDuration     *prometheus.HistogramVec
	reconnectedCounter *prometheus.CounterVec
}

// NewMetrics instantiate and return an object of Metrics
func NewMetrics() *Metrics {
	buckets := []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

	return &Metrics{
		// commandDuration is used to expose 'command_dispatch_duration_seconds' metrics
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_dispatch_duration_seconds",
				Help:      "histogram of command dispatch latencies",
				Buckets:   buckets,
			},
			[]string{"command", "success"},
		),
		// publishDuration is used to expose 'event_publish_duration_seconds' metrics
		publishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_publish_duration_seconds",
				Help:      "histogram of event publication latencies",
				Buckets:   buckets,
			},
			[]string{"event", "success"},
		),
		// receivedCounter is used to expose 'event_received_count' metric
		receivedCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_received_count",
				Help:      "counter for number of deliveries received",
			},
			[]string{"event", "decoded"},
		),
		// handleDuration is used to expose 'event_handle_duration_seconds' metrics
		handleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_handle_duration_seconds",
				Help:      "histogram of event handling latencies",
				Buckets:   buckets,
			},
			[]string{"event", "acknowledged"},
		),
		// reconnectedCounter is used to expose 'consumer_reconnect_count' metric
		reconnectedCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consumer_reconnect_count",
				Help:      "counter for number of consumer reconnect attempts",
			},
			[]string{"resource", "success"},
		),
	}
}

// RegisterMetrics registers all collectors with the given registry
func (m *Metrics) RegisterMetrics(registry prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.commandDuration,
		m.publishDuration,
		m.receivedCounter,
		m.handleDuration,
		m.reconnectedCounter,
	} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// CommandDispatched observes the time all handlers of a command took
func (m *Metrics) CommandDispatched(name string, success bool, duration time.Duration) {
	labels := prometheus.Labels{"command": name, "success": strconv.FormatBool(success)}
	m.commandDuration.With(labels).Observe(duration.Seconds())
}

// EventPublished observes the time an event publication took
func (m *Metrics) EventPublished(name string, success bool, duration time.Duration) {
	labels := prometheus.Labels{"event": name, "success": strconv.FormatBool(success)}
	m.publishDuration.With(labels).Observe(duration.Seconds())
}

// EventReceived counts received deliveries
func (m *Metrics) EventReceived(name string, decoded bool) {
	labels := prometheus.Labels{"event": name, "decoded": strconv.FormatBool(decoded)}
	m.receivedCounter.With(labels).Inc()
}

// EventHandled observes the time the consumer callback took
func (m *Metrics) EventHandled(name string, acknowledged bool, duration time.Duration) {
	labels := prometheus.Labels{"event": name, "acknowledged": strconv.FormatBool(acknowledged)}
	m.handleDuration.With(labels).Observe(duration.Seconds())
}

// ConsumerReconnected counts reconnect attempts
func (m *Metrics) ConsumerReconnected(resource string, success bool) {
	labels := prometheus.Labels{"resource": resource, "success": strconv.FormatBool(success)}
	m.reconnectedCounter.With(labels).Inc()
}
