// Package metrics exposes Prometheus collectors for the billing service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farm_billing",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	invoicesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farm_billing",
			Name:      "invoices_generated_total",
			Help:      "Invoices returned by generation, split by whether they were newly created.",
		},
		[]string{"outcome"},
	)

	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farm_billing",
			Name:      "deliveries_total",
			Help:      "Invoice email delivery attempts by result.",
		},
		[]string{"result"},
	)

	batchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "farm_billing",
			Name:      "batch_duration_seconds",
			Help:      "Duration of generate-and-deliver batch runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		invoicesGenerated,
		deliveries,
		batchDuration,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest counts one handled request. path should be the route template.
func RecordHTTPRequest(method, path string, status int) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// RecordInvoice counts an invoice returned by generation.
func RecordInvoice(created bool) {
	outcome := "existing"
	if created {
		outcome = "created"
	}
	invoicesGenerated.WithLabelValues(outcome).Inc()
}

// RecordDelivery counts one email delivery attempt.
func RecordDelivery(sent bool) {
	result := "failed"
	if sent {
		result = "sent"
	}
	deliveries.WithLabelValues(result).Inc()
}

// ObserveBatch records the wall time of one batch run.
func ObserveBatch(d time.Duration) {
	batchDuration.Observe(d.Seconds())
}
