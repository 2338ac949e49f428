// Package metrics defines the prometheus instrumentation of screenrec.
// All metrics are prefixed with "screenrec_".
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Preview metrics
var (
	PreviewOpensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screenrec_preview_opens_total",
			Help: "Total number of preview windows opened",
		},
		[]string{"kind", "status"},
	)

	PreviewOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "screenrec_preview_open",
			Help: "1 when a preview window is open",
		},
	)
)

// Recording metrics
var (
	RecordingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screenrec_recordings_total",
			Help: "Total number of recordings by status",
		},
		[]string{"status"}, // "ok", "denied", "unsupported", "error"
	)

	RecordingActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "screenrec_recording_active",
			Help: "1 while a recording is in progress",
		},
	)

	RecordedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screenrec_recorded_bytes_total",
			Help: "Total bytes of recorded chunks",
		},
	)
)

// Conversion metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screenrec_conversions_total",
			Help: "Total number of conversions by format and status",
		},
		[]string{"format", "status"},
	)

	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "screenrec_conversion_duration_seconds",
			Help:    "Conversion duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"format"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screenrec_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "screenrec_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
