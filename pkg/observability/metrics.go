package observability

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eora"

// Metrics holds the assistant's collectors.
type Metrics struct {
	registry *prometheus.Registry

	questions      *prometheus.CounterVec
	answerDuration *prometheus.HistogramVec
	llmErrors      *prometheus.CounterVec
	documents      prometheus.Gauge
	indexDuration  prometheus.Histogram
	crawledPages   prometheus.Counter
}

// NewMetrics creates and registers the collectors in a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions answered, by complexity level and outcome.",
		}, []string{"level", "outcome"}),
		answerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_duration_seconds",
			Help:      "Time spent generating an answer.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"level"}),
		llmErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_errors_total",
			Help:      "Failed language model calls, by error category.",
		}, []string{"kind"}),
		documents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "indexed_documents",
			Help:      "Chunks currently held by the vector index.",
		}),
		indexDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_duration_seconds",
			Help:      "Time spent loading and embedding documents.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		crawledPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawled_pages_total",
			Help:      "Web pages fetched by the crawler.",
		}),
	}
	m.registry.MustRegister(
		m.questions,
		m.answerDuration,
		m.llmErrors,
		m.documents,
		m.indexDuration,
		m.crawledPages,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_megabytes",
			Help:      "Memory obtained from the OS by the Go runtime.",
		}, MemoryMB),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAnswer records one answered question. errKind is empty on success.
func (m *Metrics) ObserveAnswer(level string, d time.Duration, errKind string) {
	if m == nil {
		return
	}
	outcome := "ok"
	if errKind != "" {
		outcome = "error"
		m.llmErrors.WithLabelValues(errKind).Inc()
	}
	m.questions.WithLabelValues(level, outcome).Inc()
	m.answerDuration.WithLabelValues(level).Observe(d.Seconds())
}

// ObserveIndex records a finished indexing run.
func (m *Metrics) ObserveIndex(documents int, d time.Duration) {
	if m == nil {
		return
	}
	m.documents.Set(float64(documents))
	m.indexDuration.Observe(d.Seconds())
}

// AddCrawledPages counts pages fetched by the crawler.
func (m *Metrics) AddCrawledPages(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.crawledPages.Add(float64(n))
}

// MemoryMB reports the memory the Go runtime holds from the OS, in megabytes.
func MemoryMB() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.Sys) / 1024 / 1024
}
