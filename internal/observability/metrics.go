package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector on a private registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ingestRows    *prometheus.CounterVec
	ingestDrops   *prometheus.CounterVec
	ingestBatches *prometheus.CounterVec
	ingestBatchDu *prometheus.HistogramVec
	indexRebuilds *prometheus.CounterVec

	lookupLatency  prometheus.Histogram
	lookupOutcomes *prometheus.CounterVec
	webhookCalls   *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	storeOps       *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ingestRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_ingest_rows_total",
			Help: "Rows processed by the graph loader, by pass and outcome.",
		}, []string{"pass", "outcome"}),
		ingestDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_ingest_dropped_total",
			Help: "Rows dropped by the graph loader, by pass and reason.",
		}, []string{"pass", "reason"}),
		ingestBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_ingest_batches_total",
			Help: "Batched writes issued by the graph loader.",
		}, []string{"pass"}),
		ingestBatchDu: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "triage_ingest_batch_duration_seconds",
			Help:    "Duration of one embed+write batch.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"pass"}),
		indexRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_vector_index_rebuilds_total",
			Help: "Vector index rebuilds, by result.",
		}, []string{"result"}),
		lookupLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "triage_lookup_duration_seconds",
			Help:    "End-to-end latency of a triage lookup.",
			Buckets: prometheus.DefBuckets,
		}),
		lookupOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_lookup_total",
			Help: "Triage lookups by outcome (match, no_match, degraded).",
		}, []string{"outcome"}),
		webhookCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_webhook_calls_total",
			Help: "Tool calls received on the webhook, by action and result.",
		}, []string{"action", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "triage_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "triage_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		storeOps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "triage_graph_store_operation_duration_seconds",
			Help:    "Graph store calls by backend, operation and status.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		}, []string{"backend", "operation", "status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ingestRows, m.ingestDrops, m.ingestBatches, m.ingestBatchDu, m.indexRebuilds,
		m.lookupLatency, m.lookupOutcomes, m.webhookCalls, m.httpRequests, m.httpLatency, m.storeOps,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IngestRows(pass, outcome string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ingestRows.WithLabelValues(pass, outcome).Add(float64(n))
}

func (m *Metrics) IngestDropped(pass, reason string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ingestDrops.WithLabelValues(pass, reason).Add(float64(n))
}

func (m *Metrics) IngestBatch(pass string, d time.Duration) {
	if m == nil {
		return
	}
	m.ingestBatches.WithLabelValues(pass).Inc()
	m.ingestBatchDu.WithLabelValues(pass).Observe(d.Seconds())
}

func (m *Metrics) IndexRebuild(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.indexRebuilds.WithLabelValues(result).Inc()
}

func (m *Metrics) Lookup(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.lookupLatency.Observe(d.Seconds())
	m.lookupOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) WebhookCall(action, result string) {
	if m == nil {
		return
	}
	m.webhookCalls.WithLabelValues(action, result).Inc()
}

func (m *Metrics) HTTPRequest(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) StoreOperation(backend, operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.storeOps.WithLabelValues(backend, operation, status).Observe(d.Seconds())
}
