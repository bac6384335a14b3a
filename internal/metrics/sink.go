package metrics

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Sink receives flushed metric batches.
type Sink interface {
	Export(ctx context.Context, batch Batch) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, batch Batch) error

// Export calls f.
func (f SinkFunc) Export(ctx context.Context, batch Batch) error {
	return f(ctx, batch)
}

// NopSink discards every batch.
type NopSink struct{}

// Export does nothing.
func (NopSink) Export(context.Context, Batch) error { return nil }

// MultiSink fans a batch out to every sink and joins their errors.
type MultiSink []Sink

// Export exports to all sinks, even if some fail.
func (m MultiSink) Export(ctx context.Context, batch Batch) error {
	var errs []error
	for _, s := range m {
		if err := s.Export(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes every batch as one structured log event.
type LogSink struct {
	Logger zerolog.Logger
}

// Export logs the batch at info level.
func (s LogSink) Export(_ context.Context, batch Batch) error {
	tags := zerolog.Dict()
	for _, k := range batch.TagKeys() {
		tags.Str(k, batch.Tags[k])
	}

	values := zerolog.Dict()
	for _, v := range batch.Values {
		if v.Measure.Type == TypeInt {
			values.Int64(v.Measure.Name, v.Int)
		} else {
			values.Float64(v.Measure.Name, v.Float)
		}
	}

	s.Logger.Info().
		Dict("tags", tags).
		Dict("values", values).
		Msg("metrics recorded")
	return nil
}

// CaptureSink keeps every exported batch in memory. Safe for concurrent use.
type CaptureSink struct {
	mu      sync.Mutex
	batches []Batch
}

// Export appends the batch.
func (c *CaptureSink) Export(_ context.Context, batch Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
	return nil
}

// Batches returns a copy of the captured batches in export order.
func (c *CaptureSink) Batches() []Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Batch(nil), c.batches...)
}
