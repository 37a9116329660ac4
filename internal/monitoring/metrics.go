package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so components can be built without monitoring.
type Metrics struct {
	registry *prometheus.Registry

	DocumentsIngested *prometheus.CounterVec
	Queries           *prometheus.CounterVec
	ToolCalls         *prometheus.CounterVec
	LLMLatency        *prometheus.HistogramVec
	LLMErrors         *prometheus.CounterVec
	EmbeddingLatency  prometheus.Histogram
	EmbeddingCache    *prometheus.CounterVec
	IndexedChunks     prometheus.Gauge
	RegisteredDocs    prometheus.Gauge
	BreakerState      *prometheus.GaugeVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		DocumentsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kb_documents_processed_total",
			Help: "Documents processed by create and add, by outcome",
		}, []string{"outcome"}),
		Queries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assistant_queries_total",
			Help: "Questions answered, by entry point",
		}, []string{"kind"}),
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_tool_calls_total",
			Help: "Tool invocations made by the agent",
		}, []string{"tool", "outcome"}),
		LLMLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Language model request latency",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		LLMErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_request_errors_total",
			Help: "Failed language model requests",
		}, []string{"operation"}),
		EmbeddingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "embedding_batch_duration_seconds",
			Help:    "Time to embed one batch of texts",
			Buckets: prometheus.DefBuckets,
		}),
		EmbeddingCache: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "embedding_cache_lookups_total",
			Help: "Embedding cache lookups by result",
		}, []string{"result"}),
		IndexedChunks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kb_indexed_chunks",
			Help: "Chunks currently in the vector index",
		}),
		RegisteredDocs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kb_registered_documents",
			Help: "Documents currently registered in the knowledge base",
		}),
		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"name"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveLLM(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.LLMLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		m.LLMErrors.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) ObserveEmbedding(start time.Time) {
	if m == nil {
		return
	}
	m.EmbeddingLatency.Observe(time.Since(start).Seconds())
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.EmbeddingCache.WithLabelValues(result).Inc()
}

func (m *Metrics) DocumentsProcessed(ingested, failed int) {
	if m == nil {
		return
	}
	m.DocumentsIngested.WithLabelValues("ingested").Add(float64(ingested))
	m.DocumentsIngested.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) Query(kind string) {
	if m == nil {
		return
	}
	m.Queries.WithLabelValues(kind).Inc()
}

func (m *Metrics) ToolCall(tool string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) SetKnowledgeBaseSize(documents, chunks int) {
	if m == nil {
		return
	}
	m.RegisteredDocs.Set(float64(documents))
	m.IndexedChunks.Set(float64(chunks))
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}
