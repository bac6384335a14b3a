package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator(t *testing.T, sink Sink) *Aggregator {
	t.Helper()

	table := Table{
		{Name: "total", Unit: "s", Type: TypeFloat, Aggregation: AggregationSum},
		{Name: "latest", Unit: "s", Type: TypeFloat, Aggregation: AggregationLastValue},
		{Name: "count", Unit: "1", Type: TypeInt, Aggregation: AggregationSum},
	}
	agg, err := New(table, sink, map[string]string{"tool": "test", "window": "25"})
	require.NoError(t, err)
	return agg
}

func TestAggregator_SumAndLastValue(t *testing.T) {
	sink := &CaptureSink{}
	agg := newTestAggregator(t, sink)

	for _, v := range []float64{2.0, 3.0, 5.0} {
		require.NoError(t, agg.Put("total", v))
		require.NoError(t, agg.Put("latest", v))
	}
	require.NoError(t, agg.Record(context.Background()))

	batches := sink.Batches()
	require.Len(t, batches, 1)

	total, ok := batches[0].Get("total")
	require.True(t, ok)
	assert.Equal(t, 10.0, total.Float)
	assert.Equal(t, 3, total.Count)

	latest, ok := batches[0].Get("latest")
	require.True(t, ok)
	assert.Equal(t, 5.0, latest.Float)

	// Never-put measures are not exported
	_, ok = batches[0].Get("count")
	assert.False(t, ok)

	assert.Equal(t, map[string]string{"tool": "test", "window": "25"}, batches[0].Tags)
}

func TestAggregator_IntTypes(t *testing.T) {
	agg := newTestAggregator(t, nil)

	require.NoError(t, agg.Put("count", 1))
	require.NoError(t, agg.Put("count", int32(2)))
	require.NoError(t, agg.Put("count", int64(3)))

	v, ok := agg.Snapshot().Get("count")
	require.True(t, ok)
	assert.Equal(t, int64(6), v.Int)
	assert.Equal(t, 6.0, v.Number())
}

func TestAggregator_PutErrors(t *testing.T) {
	tests := []struct {
		name    string
		measure string
		value   any
		wantErr error
	}{
		{name: "unknown measure", measure: "nope", value: 1.0, wantErr: ErrUnknownMeasure},
		{name: "int into float", measure: "total", value: 1, wantErr: ErrTypeMismatch},
		{name: "float into int", measure: "count", value: 1.5, wantErr: ErrTypeMismatch},
		{name: "string into float", measure: "latest", value: "1.0", wantErr: ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := newTestAggregator(t, nil)
			err := agg.Put(tt.measure, tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Put(%q, %v) = %v, want %v", tt.measure, tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestAggregator_RecordOnce(t *testing.T) {
	sink := &CaptureSink{}
	agg := newTestAggregator(t, sink)
	ctx := context.Background()

	require.NoError(t, agg.Put("total", 1.0))
	require.NoError(t, agg.Record(ctx))

	assert.ErrorIs(t, agg.Record(ctx), ErrFlushed)
	assert.ErrorIs(t, agg.Put("total", 1.0), ErrFlushed)
	assert.Len(t, sink.Batches(), 1)
}

func TestAggregator_RecordEmpty(t *testing.T) {
	sink := &CaptureSink{}
	agg := newTestAggregator(t, sink)

	require.NoError(t, agg.Record(context.Background()))

	batches := sink.Batches()
	require.Len(t, batches, 1)
	assert.Empty(t, batches[0].Values)
}

func TestAggregator_TagsAreCopied(t *testing.T) {
	tags := map[string]string{"tool": "engine"}
	agg, err := New(GeneratorMeasures, nil, tags)
	require.NoError(t, err)

	tags["tool"] = "mutated"
	assert.Equal(t, "engine", agg.Tags()["tool"])
}

func TestAggregator_SinkError(t *testing.T) {
	boom := errors.New("boom")
	agg := newTestAggregator(t, SinkFunc(func(context.Context, Batch) error { return boom }))

	err := agg.Record(context.Background())
	assert.ErrorIs(t, err, boom)

	// Flushed even when export fails
	assert.ErrorIs(t, agg.Record(context.Background()), ErrFlushed)
}
