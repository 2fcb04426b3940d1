package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "valeda"

// Collector owns every metric the service exports. Each Collector has its
// own registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	TreatmentsCreatedTotal prometheus.Counter
	TreatmentsDeletedTotal prometheus.Counter
	ArchiveExportsTotal    *prometheus.CounterVec
	ArchivedTreatments     prometheus.Counter
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		TreatmentsCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clinical",
			Name:      "treatments_created_total",
			Help:      "Total number of treatment records created.",
		}),

		TreatmentsDeletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clinical",
			Name:      "treatments_deleted_total",
			Help:      "Total number of treatment records deleted.",
		}),

		ArchiveExportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "exports_total",
			Help:      "Archive exports by outcome.",
		}, []string{"outcome"}),

		ArchivedTreatments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "treatments_total",
			Help:      "Treatments written to archive exports.",
		}),
	}
}

func (c *Collector) TreatmentCreated() { c.TreatmentsCreatedTotal.Inc() }

func (c *Collector) TreatmentDeleted() { c.TreatmentsDeletedTotal.Inc() }

// ArchiveExported records one export attempt and, on success, its size.
func (c *Collector) ArchiveExported(count int, err error) {
	if err != nil {
		c.ArchiveExportsTotal.WithLabelValues("error").Inc()
		return
	}
	c.ArchiveExportsTotal.WithLabelValues("success").Inc()
	c.ArchivedTreatments.Add(float64(count))
}

// Handler serves this collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
