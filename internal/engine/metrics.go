package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: вызовы удаленного API (включая ретраи)
	UpstreamDuration *prometheus.HistogramVec

	// Errors: классификация отказов апстрима
	UpstreamErrors *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker (0 - ок, 0.5 - half-open, 1 - выбило)
	CircuitBreakerState *prometheus.GaugeVec

	// Первичные источники: ok / unavailable на каждом проходе
	SourceFetches *prometheus.CounterVec

	// Обогащение инсайтами: исход каждого вызова сервиса объяснений
	EnrichmentOutcomes *prometheus.CounterVec
	EnrichmentDuration prometheus.Histogram

	// Проходы агрегации: ready / errored
	Refreshes       *prometheus.CounterVec
	RefreshDuration prometheus.Histogram

	// История: заполненность буфера и сброшенные снимки (backpressure)
	HistoryBufferFill prometheus.Gauge
	HistoryDropped    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_upstream_request_duration_seconds",
			Help:    "Histogram of upstream API call latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"breaker", "result"}),

		UpstreamErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_upstream_errors_total",
			Help: "Total number of upstream errors by type.",
		}, []string{"breaker", "type"}), // типы: breaker_open, not_found, throttled, status, timeout, network

		CircuitBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "console_circuit_breaker_state",
			Help: "Current state of the circuit breaker (0=closed, 0.5=half-open, 1=open).",
		}, []string{"breaker"}),

		SourceFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_source_fetches_total",
			Help: "Primary data source fetches by result.",
		}, []string{"source", "result"}),

		EnrichmentOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_enrichment_calls_total",
			Help: "Explanation service calls by outcome.",
		}, []string{"outcome"}),

		EnrichmentDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "console_enrichment_call_duration_seconds",
			Help:    "Histogram of explanation call latencies.",
			Buckets: prometheus.DefBuckets,
		}),

		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "console_dashboard_refreshes_total",
			Help: "Dashboard aggregation passes by resulting phase.",
		}, []string{"phase"}),

		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "console_dashboard_refresh_duration_seconds",
			Help:    "Histogram of full dashboard refresh durations.",
			Buckets: prometheus.DefBuckets,
		}),

		HistoryBufferFill: f.NewGauge(prometheus.GaugeOpts{
			Name: "console_history_buffer_utilization",
			Help: "Current number of fleet snapshots waiting to be persisted.",
		}),

		HistoryDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "console_history_dropped_total",
			Help: "Fleet snapshots dropped because the buffer was full.",
		}),
	}
}

// EnrichmentOutcome реализует insight.Recorder.
func (m *Metrics) EnrichmentOutcome(outcome string, d time.Duration) {
	m.EnrichmentOutcomes.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.EnrichmentDuration.Observe(d.Seconds())
	}
}

// SourceFetched отмечает результат загрузки первичного источника.
func (m *Metrics) SourceFetched(source string, ok bool) {
	result := "ok"
	if !ok {
		result = "unavailable"
	}
	m.SourceFetches.WithLabelValues(source, result).Inc()
}
