// Package observability exposes run metrics to Prometheus.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "azfinsim"

// Metrics holds the process-level Prometheus metrics and the registry they live in.
type Metrics struct {
	Registry *prometheus.Registry

	// Store metrics
	PipelineExecs        *prometheus.CounterVec
	PipelineExecDuration *prometheus.HistogramVec
	PipelineExecErrors   *prometheus.CounterVec

	// Generator metrics
	TradesGenerated prometheus.Counter
	BatchesWritten  prometheus.Counter

	// Engine metrics
	TradesProcessed  prometheus.Counter
	InjectedFailures prometheus.Counter
	TradeComputeTime prometheus.Histogram

	// Telemetry
	MetricBatchesExported *prometheus.CounterVec
	MeasureValue          *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance on a fresh registry.
// Go runtime and process collectors are registered alongside.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		PipelineExecs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "pipeline_execs_total",
			Help:      "Total number of pipeline executions by backend",
		}, []string{"backend"}),
		PipelineExecDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "pipeline_exec_duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		PipelineExecErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "pipeline_exec_errors_total",
			Help:      "Total number of failed pipeline executions by backend",
		}, []string{"backend"}),

		TradesGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "trades_generated_total",
			Help:      "Total number of synthetic trades generated",
		}),
		BatchesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "batches_written_total",
			Help:      "Total number of trade batches written",
		}),

		TradesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trades_processed_total",
			Help:      "Total number of trades processed",
		}),
		InjectedFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "injected_failures_total",
			Help:      "Total number of injected task failures",
		}),
		TradeComputeTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trade_compute_seconds",
			Help:      "Per-trade compute time in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}),

		MetricBatchesExported: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telemetry",
			Name:      "batches_exported_total",
			Help:      "Total number of metric batches exported by tool",
		}, []string{"tool"}),
		MeasureValue: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "measure_value",
			Help:      "Last flushed aggregate of a run measure",
		}, []string{"measure", "unit", "tool", "run_id"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObservePipelineExec records one pipeline execution.
func (m *Metrics) ObservePipelineExec(backend string, seconds float64, err error) {
	m.PipelineExecs.WithLabelValues(backend).Inc()
	m.PipelineExecDuration.WithLabelValues(backend).Observe(seconds)
	if err != nil {
		m.PipelineExecErrors.WithLabelValues(backend).Inc()
	}
}

// ObserveBatchWritten records one generated batch of n trades.
func (m *Metrics) ObserveBatchWritten(n int) {
	m.BatchesWritten.Inc()
	m.TradesGenerated.Add(float64(n))
}

// ObserveTradeProcessed records one processed trade.
func (m *Metrics) ObserveTradeProcessed(computeSeconds float64) {
	m.TradesProcessed.Inc()
	m.TradeComputeTime.Observe(computeSeconds)
}

// ObserveInjectedFailure records one injected failure.
func (m *Metrics) ObserveInjectedFailure() {
	m.InjectedFailures.Inc()
}
