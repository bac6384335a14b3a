// Package transfer copies trades between a sequential file and a keyed
// store, in pipelines of a fixed size.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"azfinsim/internal/metrics"
	"azfinsim/internal/observability"
	"azfinsim/internal/run"
	"azfinsim/internal/storage"
	"azfinsim/internal/trade"
)

// DefaultBatchSize is the number of entries per pipeline execution.
const DefaultBatchSize = 10000

// ErrMissingTrade is returned by Dump when a trade of the range is absent.
var ErrMissingTrade = errors.New("trade missing from source")

// Options contains configuration for creating a Copier.
type Options struct {
	BatchSize int          // Default: DefaultBatchSize
	Sink      metrics.Sink // Default: discard
	Run       run.Info
	Observer  *observability.Metrics
	Backend   string // label for observer metrics
	Logger    *zerolog.Logger
}

// Copier moves trades between stores.
type Copier struct {
	batchSize int
	sink      metrics.Sink
	run       run.Info
	observer  *observability.Metrics
	backend   string
	logger    zerolog.Logger
}

// Result summarizes a copy.
type Result struct {
	Entries int
	Execs   int
	IOTime  time.Duration
}

// New creates a new Copier.
func New(opts Options) *Copier {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	sink := opts.Sink
	if sink == nil {
		sink = metrics.NopSink{}
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Copier{
		batchSize: batch,
		sink:      sink,
		run:       opts.Run,
		observer:  opts.Observer,
		backend:   opts.Backend,
		logger:    logger,
	}
}

// Load copies entries of src into dst. A window of 0 copies every entry;
// otherwise only trade keys in [start, start+window) are copied.
func (c *Copier) Load(ctx context.Context, src storage.Scanner, dst storage.Store, start, window int64) (*Result, error) {
	began := time.Now()
	agg, err := c.newAggregator("load", start, window)
	if err != nil {
		return nil, err
	}

	lo, hi := trade.Key(start), trade.Key(start+window)
	res := &Result{}
	pipe := dst.Pipeline()

	var copyErr error
	for e, err := range src.Scan(ctx) {
		if err != nil {
			copyErr = err
			break
		}
		if window > 0 && (e.Key < lo || e.Key >= hi) {
			continue
		}
		pipe.Set(e.Key, e.Value)
		if pipe.Len() >= c.batchSize {
			if copyErr = c.exec(ctx, pipe, agg, res); copyErr != nil {
				break
			}
		}
	}
	if copyErr == nil && pipe.Len() > 0 {
		copyErr = c.exec(ctx, pipe, agg, res)
	}

	return c.finish(ctx, agg, res, began, "loaded", copyErr)
}

// Dump reads trades [start, start+window) from src and writes them to dst in order.
func (c *Copier) Dump(ctx context.Context, src, dst storage.Store, start, window int64) (*Result, error) {
	began := time.Now()
	agg, err := c.newAggregator("dump", start, window)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	pipe := dst.Pipeline()

	var copyErr error
	for n := start; n < start+window; n++ {
		if copyErr = ctx.Err(); copyErr != nil {
			break
		}
		key := trade.Key(n)
		payload, err := src.Get(ctx, key)
		if err != nil {
			copyErr = fmt.Errorf("read %s: %w", key, err)
			break
		}
		if payload == nil {
			copyErr = fmt.Errorf("%w: %s", ErrMissingTrade, key)
			break
		}
		pipe.Set(key, payload)
		if pipe.Len() >= c.batchSize {
			if copyErr = c.exec(ctx, pipe, agg, res); copyErr != nil {
				break
			}
		}
	}
	if copyErr == nil && pipe.Len() > 0 {
		copyErr = c.exec(ctx, pipe, agg, res)
	}

	return c.finish(ctx, agg, res, began, "dumped", copyErr)
}

func (c *Copier) newAggregator(direction string, start, window int64) (*metrics.Aggregator, error) {
	tags := c.run.MetricTags(map[string]string{
		"direction":    direction,
		"start_trade":  run.Itoa(start),
		"trade_window": run.Itoa(window),
	})
	agg, err := metrics.New(metrics.GeneratorMeasures, c.sink, tags)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	return agg, nil
}

func (c *Copier) exec(ctx context.Context, pipe storage.Pipeline, agg *metrics.Aggregator, res *Result) error {
	n := pipe.Len()
	execStart := time.Now()
	err := pipe.Exec(ctx)
	d := time.Since(execStart)
	if c.observer != nil {
		c.observer.ObservePipelineExec(c.backend, d.Seconds(), err)
	}
	if err != nil {
		return fmt.Errorf("write %d entries: %w", n, err)
	}
	if c.observer != nil {
		c.observer.ObserveBatchWritten(n)
	}

	res.Entries += n
	res.Execs++
	res.IOTime += d
	c.logger.Debug().Int("entries", res.Entries).Msg("batch written")
	return agg.Put(metrics.MeasureIOTime, d.Seconds())
}

func (c *Copier) finish(ctx context.Context, agg *metrics.Aggregator, res *Result, began time.Time, verb string, copyErr error) (*Result, error) {
	if err := agg.Put(metrics.MeasureExecutionTime, time.Since(began).Seconds()); err != nil {
		return res, errors.Join(copyErr, err)
	}
	if err := agg.Record(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn().Err(err).Msg("export transfer metrics")
	}
	if copyErr != nil {
		return res, copyErr
	}

	c.logger.Info().
		Int("entries", res.Entries).
		Int("execs", res.Execs).
		Dur("io_time", res.IOTime).
		Msg(verb)
	return res, nil
}
