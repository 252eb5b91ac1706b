// Package metrics registers the Prometheus instruments of the billing engine.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "billing_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	bookingTransitions *prometheus.CounterVec
	documentsIssued    *prometheus.CounterVec
	exportTotal        *prometheus.CounterVec
	exportLatency      *prometheus.HistogramVec
	httpRequests       *prometheus.CounterVec
)

// Init registers all metrics with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		bookingTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "booking_transitions_total",
				Help: "Total booking lifecycle transitions by operation and result",
			},
			[]string{"operation", "result"},
		)
		documentsIssued = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "documents_issued_total",
				Help: "Total billing documents issued by kind",
			},
			[]string{"kind"},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "document_export_total",
				Help: "Total document export runs by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "document_export_latency_seconds",
				Help:    "Document export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method and status class",
			},
			[]string{"method", "status"},
		)

		prometheus.MustRegister(
			bookingTransitions,
			documentsIssued,
			exportTotal,
			exportLatency,
			httpRequests,
		)
	})
}

// IncBookingTransition increments the transition counter.
func IncBookingTransition(operation string, err error) {
	if bookingTransitions == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	bookingTransitions.WithLabelValues(operation, result).Inc()
}

// IncDocumentIssued increments the issued-document counter.
func IncDocumentIssued(kind string) {
	if documentsIssued != nil {
		documentsIssued.WithLabelValues(kind).Inc()
	}
}

// ObserveExport records one export run.
func ObserveExport(format string, err error, duration time.Duration) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncHTTPRequest counts one finished HTTP request.
func IncHTTPRequest(method, statusClass string) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, statusClass).Inc()
	}
}
