package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azfinsim/internal/metrics"
	"azfinsim/internal/run"
)

func record(t *testing.T, sink metrics.Sink, tags map[string]string) {
	t.Helper()
	agg, err := metrics.New(metrics.GeneratorMeasures, sink, tags)
	require.NoError(t, err)
	require.NoError(t, agg.Put(metrics.MeasureIOTime, 1.5))
	require.NoError(t, agg.Record(context.Background()))
}

func TestOpen_NoSinks(t *testing.T) {
	tel, err := Open(t.Context(), Settings{Sinks: []string{SinkNone}}, run.New("generator", nil), zerolog.Nop())
	require.NoError(t, err)
	defer tel.Close()

	assert.IsType(t, metrics.NopSink{}, tel.Sink)
	assert.Nil(t, tel.Observer)
}

func TestOpen_LogAndPrometheus(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	info := run.New("generator", nil)

	tel, err := Open(t.Context(), Settings{Sinks: []string{SinkLog, SinkPrometheus}}, info, logger)
	require.NoError(t, err)
	defer tel.Close()

	require.IsType(t, metrics.MultiSink{}, tel.Sink)
	require.NotNil(t, tel.Observer)

	record(t, tel.Sink, info.MetricTags(nil))

	assert.Contains(t, buf.String(), "metrics recorded")
	assert.Equal(t, 1, testutil.CollectAndCount(tel.Observer.MeasureValue))
}

func TestOpen_UnknownSink(t *testing.T) {
	_, err := Open(t.Context(), Settings{Sinks: []string{"statsd"}}, run.Info{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnknownSink)
}
