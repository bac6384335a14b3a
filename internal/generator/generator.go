// Package generator fills a store with synthetic trades, one pipeline per batch.
package generator

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"azfinsim/internal/metrics"
	"azfinsim/internal/observability"
	"azfinsim/internal/run"
	"azfinsim/internal/storage"
	"azfinsim/internal/trade"
)

// SourceFunc produces the key/payload pairs of count trades starting at start.
type SourceFunc func(start int64, count int) iter.Seq2[string, []byte]

// Generator writes trade ranges into a store.
type Generator struct {
	store     storage.Store
	sink      metrics.Sink
	run       run.Info
	workers   int
	batchSize int
	source    SourceFunc
	observer  *observability.Metrics
	backend   string
	logger    zerolog.Logger
}

// Options contains configuration for creating a Generator.
type Options struct {
	Store     storage.Store
	Sink      metrics.Sink // Default: discard
	Run       run.Info
	Workers   int        // Default: logical cores; forced to 1 for sequential stores
	BatchSize int        // Default: DefaultBatchSize(window, workers)
	Source    SourceFunc // Default: trade.Generate
	Observer  *observability.Metrics
	Backend   string // label for observer metrics
	Logger    *zerolog.Logger
}

// Result summarizes a completed run.
type Result struct {
	Batches       []Batch
	Workers       int
	BatchSize     int
	Trades        int64
	IOTime        time.Duration // sum of pipeline execute durations
	ExecutionTime time.Duration // wall clock
}

// New creates a new Generator.
func New(opts Options) *Generator {
	sink := opts.Sink
	if sink == nil {
		sink = metrics.NopSink{}
	}

	source := opts.Source
	if source == nil {
		source = trade.Generate
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Generator{
		store:     opts.Store,
		sink:      sink,
		run:       opts.Run,
		workers:   opts.Workers,
		batchSize: opts.BatchSize,
		source:    source,
		observer:  opts.Observer,
		backend:   opts.Backend,
		logger:    logger,
	}
}

// Run writes trades [start, start+window) and returns after every batch's
// pipeline has executed. The first failing batch cancels the rest; its
// error is returned after the run metrics are recorded.
func (g *Generator) Run(ctx context.Context, start, window int64) (*Result, error) {
	began := time.Now()

	workers := g.workers
	if workers <= 0 {
		workers = DefaultWorkers(ctx)
	}
	if !g.store.ConcurrentPipelines() {
		workers = 1
		if start != 0 {
			g.logger.Error().
				Int64("start_trade", start).
				Msg("sequential store cannot start at a trade other than 0")
		}
	}

	batchSize := g.batchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize(window, workers)
	}
	batches := Partition(start, window, batchSize)

	g.logger.Info().
		Int("workers", workers).
		Int64("start_trade", start).
		Int64("end_trade", start+window-1).
		Int("batch_size", min(MaxBatchSize, max(1, batchSize))).
		Int("batches", len(batches)).
		Msg("generating trades")

	runTags := g.run.MetricTags(map[string]string{
		"trade_window": run.Itoa(window),
		"threads":      strconv.Itoa(workers),
	})
	runAgg, err := metrics.New(metrics.GeneratorMeasures, g.sink, runTags)
	if err != nil {
		return nil, fmt.Errorf("create run metrics: %w", err)
	}

	// One slot per batch; each task writes only its own slot.
	ioTimes := make([]time.Duration, len(batches))
	written := make([]bool, len(batches))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, b := range batches {
		eg.Go(func() error {
			d, err := g.fillBatch(egCtx, b, runTags)
			ioTimes[i] = d
			written[i] = err == nil
			return err
		})
	}
	runErr := eg.Wait()

	res := &Result{
		Batches:   batches,
		Workers:   workers,
		BatchSize: min(MaxBatchSize, max(1, batchSize)),
	}
	for i, d := range ioTimes {
		res.IOTime += d
		if written[i] {
			res.Trades += int64(batches[i].Count)
		}
		if err := runAgg.Put(metrics.MeasureIOTime, d.Seconds()); err != nil {
			return nil, err
		}
	}
	res.ExecutionTime = time.Since(began)
	if err := runAgg.Put(metrics.MeasureExecutionTime, res.ExecutionTime.Seconds()); err != nil {
		return nil, err
	}
	if err := runAgg.Record(context.WithoutCancel(ctx)); err != nil {
		g.logger.Warn().Err(err).Msg("export run metrics")
	}

	if runErr != nil {
		return res, runErr
	}

	g.logger.Info().
		Int64("trades", res.Trades).
		Dur("execution_time", res.ExecutionTime).
		Dur("io_time", res.IOTime).
		Msg("cache filled")
	return res, nil
}

// fillBatch stages one batch into its own pipeline and executes it once.
// It returns the execute duration, or zero if the batch was not written.
func (g *Generator) fillBatch(ctx context.Context, b Batch, runTags map[string]string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	began := time.Now()

	tags := maps.Clone(runTags)
	tags[metrics.TagBatchStart] = run.Itoa(b.Start)

	agg, err := metrics.New(metrics.GeneratorMeasures, g.sink, tags)
	if err != nil {
		return 0, fmt.Errorf("create batch metrics: %w", err)
	}

	g.logger.Debug().Int64("from", b.Start).Int64("to", b.End()-1).Msg("generating batch")

	pipe := g.store.Pipeline()
	for key, payload := range g.source(b.Start, b.Count) {
		pipe.Set(key, payload)
	}

	execStart := time.Now()
	err = pipe.Exec(ctx)
	ioTime := time.Since(execStart)
	if g.observer != nil {
		g.observer.ObservePipelineExec(g.backend, ioTime.Seconds(), err)
	}
	if err != nil {
		return 0, fmt.Errorf("write batch %d-%d: %w", b.Start, b.End()-1, err)
	}
	if g.observer != nil {
		g.observer.ObserveBatchWritten(b.Count)
	}

	if err := agg.Put(metrics.MeasureIOTime, ioTime.Seconds()); err != nil {
		return ioTime, err
	}
	if err := agg.Put(metrics.MeasureExecutionTime, time.Since(began).Seconds()); err != nil {
		return ioTime, err
	}
	if err := agg.Record(context.WithoutCancel(ctx)); err != nil {
		g.logger.Warn().Err(err).Int64("batch_start", b.Start).Msg("export batch metrics")
	}

	return ioTime, nil
}
