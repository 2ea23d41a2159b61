// Package metrics records store requests and command outcomes in a
// Prometheus registry that can be exported as a node-exporter textfile.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics owns a private registry so that tests and multiple clients do not collide.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	payloadBytes    *prometheus.CounterVec
	commandsTotal   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stash_store_requests_total",
				Help: "Total number of store requests",
			},
			[]string{"op", "status"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stash_store_request_duration_seconds",
				Help:    "Store request duration in seconds, including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		payloadBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stash_payload_bytes_total",
				Help: "Payload bytes transferred to and from the vault",
			},
			[]string{"direction"},
		),
		commandsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stash_commands_total",
				Help: "Commands run to completion, by verb and exit code",
			},
			[]string{"command", "exit_code"},
		),
	}
}

// RecordRequest records one store request.
func (m *Metrics) RecordRequest(op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.requestsTotal.WithLabelValues(op, status).Inc()
	m.requestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordUpload adds to the uploaded payload byte count.
func (m *Metrics) RecordUpload(n int64) {
	if m == nil {
		return
	}
	m.payloadBytes.WithLabelValues("upload").Add(float64(n))
}

// RecordDownload adds to the downloaded payload byte count.
func (m *Metrics) RecordDownload(n int64) {
	if m == nil {
		return
	}
	m.payloadBytes.WithLabelValues("download").Add(float64(n))
}

// RecordCommand records a finished command.
func (m *Metrics) RecordCommand(verb string, exitCode int) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(verb, strconv.Itoa(exitCode)).Inc()
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
