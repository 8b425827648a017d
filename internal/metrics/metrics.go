// Package metrics provides Prometheus metrics for the recommender service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "licita"

// Metrics holds the service's collectors on a private registry, so several instances
// (e.g. in tests) never collide.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Recommendations
	RecommendationsTotal   *prometheus.CounterVec
	RecommendationDuration *prometheus.HistogramVec

	// Corpus rebuilds
	RebuildsTotal      *prometheus.CounterVec
	RebuildDuration    prometheus.Histogram
	RebuildsInProgress prometheus.Gauge
	CorpusSuppliers    prometheus.Gauge

	// Catalog
	CatalogRecords  *prometheus.GaugeVec
	StorageBytes    prometheus.Gauge
	ProposalsScored prometheus.Counter
}

// New creates and registers all metrics, plus Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		RecommendationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Total number of recommendation requests by outcome",
		}, []string{"strategy", "status"}),
		RecommendationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_duration_seconds",
			Help:      "Duration of recommendation requests in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"strategy"}),
		RebuildsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "corpus_rebuilds_total",
			Help:      "Total number of corpus index rebuilds by outcome",
		}, []string{"status"}),
		RebuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "corpus_rebuild_duration_seconds",
			Help:      "Duration of corpus index rebuilds in seconds",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		RebuildsInProgress: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_rebuilds_in_progress",
			Help:      "Number of corpus rebuilds currently running",
		}),
		CorpusSuppliers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_suppliers",
			Help:      "Number of suppliers in the published corpus index",
		}),
		CatalogRecords: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_records",
			Help:      "Number of stored records by kind",
		}, []string{"kind"}),
		StorageBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "storage_bytes",
			Help:      "Bytes used by the database and indexes on disk",
		}),
		ProposalsScored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proposals_scored_total",
			Help:      "Total number of proposals scored",
		}),
	}
}

// Registry returns the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RebuildStarted marks a corpus rebuild as running.
func (m *Metrics) RebuildStarted() {
	m.RebuildsInProgress.Inc()
}

// RebuildFinished records a rebuild outcome. The corpus size gauge only moves on success,
// since failed and cancelled builds are never published.
func (m *Metrics) RebuildFinished(status string, elapsed time.Duration, suppliers int) {
	m.RebuildsInProgress.Dec()
	m.RebuildsTotal.WithLabelValues(status).Inc()
	m.RebuildDuration.Observe(elapsed.Seconds())
	if status == "success" {
		m.CorpusSuppliers.Set(float64(suppliers))
	}
}

// ObserveRecommendation records one recommendation request.
func (m *Metrics) ObserveRecommendation(strategy, status string, elapsed time.Duration) {
	m.RecommendationsTotal.WithLabelValues(strategy, status).Inc()
	m.RecommendationDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(route, method string, code int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// UpdateCatalogStats sets record counts and on-disk size.
func (m *Metrics) UpdateCatalogStats(tenders, suppliers, proposals, bytes int64) {
	m.CatalogRecords.WithLabelValues("tenders").Set(float64(tenders))
	m.CatalogRecords.WithLabelValues("suppliers").Set(float64(suppliers))
	m.CatalogRecords.WithLabelValues("proposals").Set(float64(proposals))
	m.StorageBytes.Set(float64(bytes))
}
