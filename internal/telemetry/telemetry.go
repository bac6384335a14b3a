// Package telemetry assembles the metric sinks selected for a run.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"azfinsim/internal/metrics"
	"azfinsim/internal/observability"
	"azfinsim/internal/run"
	"azfinsim/internal/storage/clickhouse"
	"azfinsim/internal/storage/migrations"
	"azfinsim/internal/storage/postgres"
)

// Sink names.
const (
	SinkLog        = "log"
	SinkPrometheus = "prometheus"
	SinkPostgres   = "postgres"
	SinkClickhouse = "clickhouse"
	SinkNone       = "none"
)

// ErrUnknownSink is returned for an unrecognized sink name.
var ErrUnknownSink = errors.New("unknown metrics sink")

// Settings selects and configures sinks.
type Settings struct {
	Sinks          []string
	PostgresDSN    string
	ClickhouseDSN  string
	PushgatewayURL string
}

// Telemetry owns the sinks of one run and the connections behind them.
type Telemetry struct {
	Sink     metrics.Sink
	Observer *observability.Metrics // nil unless the prometheus sink is enabled

	closers []func() error
}

// Open builds the sinks named in s. Database sinks connect and migrate here,
// so a bad DSN fails the run before any work starts.
func Open(ctx context.Context, s Settings, info run.Info, logger zerolog.Logger) (*Telemetry, error) {
	t := &Telemetry{}
	var sinks metrics.MultiSink

	for _, name := range s.Sinks {
		switch name {
		case SinkNone:
		case SinkLog:
			sinks = append(sinks, metrics.LogSink{Logger: logger})
		case SinkPrometheus:
			t.Observer = observability.NewMetrics(observability.DefaultNamespace)
			sinks = append(sinks, observability.NewSink(observability.SinkOptions{
				Metrics:        t.Observer,
				PushgatewayURL: s.PushgatewayURL,
				Job:            info.Tool,
				Grouping:       map[string]string{"run_id": info.ID},
			}))
		case SinkPostgres:
			pool, err := migrations.OpenPostgres(ctx, s.PostgresDSN)
			if err != nil {
				t.Close()
				return nil, fmt.Errorf("postgres sink: %w", err)
			}
			t.closers = append(t.closers, func() error { pool.Close(); return nil })
			sinks = append(sinks, postgres.NewMetricBatchStore(pool))
		case SinkClickhouse:
			conn, err := migrations.RunClickhouseMigrations(ctx, s.ClickhouseDSN)
			if err != nil {
				t.Close()
				return nil, fmt.Errorf("clickhouse sink: %w", err)
			}
			t.closers = append(t.closers, conn.Close)
			sinks = append(sinks, clickhouse.NewMetricBatchStore(conn))
		default:
			t.Close()
			return nil, fmt.Errorf("%w: %q", ErrUnknownSink, name)
		}
	}

	switch len(sinks) {
	case 0:
		t.Sink = metrics.NopSink{}
	case 1:
		t.Sink = sinks[0]
	default:
		t.Sink = sinks
	}
	return t, nil
}

// Close releases database connections in reverse order of opening.
func (t *Telemetry) Close() error {
	var errs []error
	for i := len(t.closers) - 1; i >= 0; i-- {
		errs = append(errs, t.closers[i]())
	}
	t.closers = nil
	return errors.Join(errs...)
}
