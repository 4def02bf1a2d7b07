package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. They live on a private
// registry so the exposition endpoint carries only what the service emits.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	ingestsTotal   *prometheus.CounterVec
	ingestDuration prometheus.Histogram
	chunksIndexed  prometheus.Counter
	documents      prometheus.Gauge

	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	activeStreams    prometheus.Gauge
}

// New creates the collector set.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docassist_http_requests_total",
			Help: "HTTP requests by method, matched route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docassist_http_request_duration_seconds",
			Help:    "HTTP request duration by method and matched route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ingestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docassist_ingests_total",
			Help: "Document ingestions by outcome.",
		}, []string{"status"}),
		ingestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "docassist_ingest_duration_seconds",
			Help:    "End to end ingestion duration.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		chunksIndexed: factory.NewCounter(prometheus.CounterOpts{
			Name: "docassist_chunks_indexed_total",
			Help: "Chunks written to the vector index.",
		}),
		documents: factory.NewGauge(prometheus.GaugeOpts{
			Name: "docassist_documents",
			Help: "Documents currently registered.",
		}),
		providerCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docassist_provider_requests_total",
			Help: "LLM provider calls by operation and outcome.",
		}, []string{"op", "status"}),
		providerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docassist_provider_request_duration_seconds",
			Help:    "LLM provider call duration by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		activeStreams: factory.NewGauge(prometheus.GaugeOpts{
			Name: "docassist_active_streams",
			Help: "Chat turns currently streaming.",
		}),
	}
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per matched chi route, so
// /documents/{documentID} stays one series regardless of the id.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordIngest records one ingestion attempt and its indexed chunk count.
func (m *Metrics) RecordIngest(duration time.Duration, chunks int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.ingestsTotal.WithLabelValues(status).Inc()
	if err == nil {
		m.ingestDuration.Observe(duration.Seconds())
		m.chunksIndexed.Add(float64(chunks))
	}
}

// SetDocumentCount tracks the registry size.
func (m *Metrics) SetDocumentCount(n int) {
	m.documents.Set(float64(n))
}

// StreamOpened marks a chat turn as in flight.
func (m *Metrics) StreamOpened() {
	m.activeStreams.Inc()
}

// StreamClosed marks a chat turn as finished.
func (m *Metrics) StreamClosed() {
	m.activeStreams.Dec()
}

func (m *Metrics) recordProviderCall(op string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.providerCalls.WithLabelValues(op, status).Inc()
	m.providerDuration.WithLabelValues(op).Observe(duration.Seconds())
}
