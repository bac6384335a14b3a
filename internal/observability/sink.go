package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/push"

	"azfinsim/internal/metrics"
)

// Tag keys promoted to gauge labels. Other tags are not exported as labels
// to keep series cardinality bounded.
const (
	TagTool  = "tool"
	TagRunID = "run_id"
)

// Sink exports flushed metric batches as Prometheus gauges and optionally
// pushes the registry to a Pushgateway after every batch.
type Sink struct {
	metrics *Metrics
	pusher  *push.Pusher
}

// SinkOptions configures the Prometheus sink.
type SinkOptions struct {
	Metrics        *Metrics
	PushgatewayURL string // empty disables pushing
	Job            string
	Grouping       map[string]string
}

// NewSink creates a Prometheus sink.
func NewSink(opts SinkOptions) *Sink {
	m := opts.Metrics
	if m == nil {
		m = NewMetrics("")
	}

	s := &Sink{metrics: m}
	if opts.PushgatewayURL != "" {
		job := opts.Job
		if job == "" {
			job = DefaultNamespace
		}
		pusher := push.New(opts.PushgatewayURL, job).Gatherer(m.Registry)
		for k, v := range opts.Grouping {
			pusher = pusher.Grouping(k, v)
		}
		s.pusher = pusher
	}
	return s
}

// Compile-time interface check.
var _ metrics.Sink = (*Sink)(nil)

// Export sets one gauge per value and pushes when configured.
// Partial batches only count as exported: their values are folded into the
// run batch, and per-batch pushes would multiply gateway traffic.
func (s *Sink) Export(ctx context.Context, batch metrics.Batch) error {
	tool := batch.Tags[TagTool]
	runID := batch.Tags[TagRunID]

	if batch.IsPartial() {
		s.metrics.MetricBatchesExported.WithLabelValues(tool).Inc()
		return nil
	}

	for _, v := range batch.Values {
		s.metrics.MeasureValue.
			WithLabelValues(v.Measure.Name, v.Measure.Unit, tool, runID).
			Set(v.Number())
	}
	s.metrics.MetricBatchesExported.WithLabelValues(tool).Inc()

	if s.pusher == nil {
		return nil
	}
	if err := s.pusher.AddContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
