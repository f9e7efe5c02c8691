package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rehc"

// Metrics holds the collectors of one health-check run.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	checksTotal    *prometheus.CounterVec
	checkDuration  *prometheus.HistogramVec
	apiRequests    *prometheus.CounterVec
	remoteCommands *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "checks_total",
				Help:      "Total number of executed checks by suite and verdict",
			},
			[]string{"suite", "verdict"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "check_duration_seconds",
				Help:      "Check execution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"suite"},
		),
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of REST API requests by topic and status code",
			},
			[]string{"topic", "code"},
		),
		remoteCommands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_commands_total",
				Help:      "Total number of remote commands by target and result",
			},
			[]string{"target", "result"},
		),
		remoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_command_duration_seconds",
				Help:      "Remote command duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"target"},
		),
	}

	m.registry.MustRegister(
		m.checksTotal,
		m.checkDuration,
		m.apiRequests,
		m.remoteCommands,
		m.remoteDuration,
	)

	return m
}

// Registry returns the registry holding the run's collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}

	return m.registry
}

// ObserveCheck records one finished check.
func (m *Metrics) ObserveCheck(suite string, verdict string, duration time.Duration) {
	if m == nil {
		return
	}

	m.checksTotal.WithLabelValues(suite, verdict).Inc()
	m.checkDuration.WithLabelValues(suite).Observe(duration.Seconds())
}

// ObserveAPIRequest records one REST call. A zero code marks a transport failure.
func (m *Metrics) ObserveAPIRequest(topic string, code int) {
	if m == nil {
		return
	}

	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}

	m.apiRequests.WithLabelValues(topic, label).Inc()
}

// ObserveRemoteCommand records one command executed on a target.
func (m *Metrics) ObserveRemoteCommand(target string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	result := "success"
	if err != nil {
		result = "error"
	}

	m.remoteCommands.WithLabelValues(target, result).Inc()
	m.remoteDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// WriteToTextfile writes the collected samples in the node_exporter
// textfile collector format.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil {
		return nil
	}

	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}

	return nil
}
