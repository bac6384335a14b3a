// Package engine processes one window of trades: fetch, optional fault
// injection, compute, batched write-back and metric emission.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"azfinsim/internal/metrics"
	"azfinsim/internal/observability"
	"azfinsim/internal/pricing"
	"azfinsim/internal/run"
	"azfinsim/internal/storage"
	"azfinsim/internal/trade"
)

// DefaultOutBatchSize is the number of trades between output pipeline executions.
const DefaultOutBatchSize = 10000

var (
	// ErrInjectedFailure is returned when the failure draw aborts the window.
	ErrInjectedFailure = errors.New("injected failure")

	// ErrUnknownMode is returned for an unrecognized compute mode.
	ErrUnknownMode = errors.New("unknown compute mode")
)

// Engine processes trade windows.
type Engine struct {
	input        storage.Store
	output       storage.Store
	pricer       pricing.Pricer
	sink         metrics.Sink
	run          run.Info
	mode         Mode
	failure      float64
	delayStart   time.Duration
	taskDuration time.Duration
	memMB        int
	outBatchSize int
	rand         func() float64
	observer     *observability.Metrics
	backend      string
	logger       zerolog.Logger
}

// Options contains configuration for creating an Engine.
type Options struct {
	Input              storage.Store
	Output             storage.Store
	Pricer             pricing.Pricer // Default: pricing.Unavailable
	Sink               metrics.Sink   // Default: discard
	Run                run.Info
	Mode               Mode // Default: ModeSynthetic
	FailureProbability float64
	DelayStart         time.Duration
	TaskDuration       time.Duration // synthetic compute runs only when > 0
	MemUsageMB         int
	OutBatchSize       int            // Default: DefaultOutBatchSize
	Rand               func() float64 // Default: math/rand/v2 Float64
	Observer           *observability.Metrics
	Backend            string // label for observer metrics
	Logger             *zerolog.Logger
}

// Result summarizes a processed window.
type Result struct {
	Processed int   // trades whose result was staged
	Flushes   []int // window indexes at which the output pipeline executed
}

// New creates a new Engine.
func New(opts Options) *Engine {
	pricer := opts.Pricer
	if pricer == nil {
		pricer = pricing.Unavailable{}
	}

	sink := opts.Sink
	if sink == nil {
		sink = metrics.NopSink{}
	}

	mode := opts.Mode
	if mode == 0 {
		mode = ModeSynthetic
	}

	outBatch := opts.OutBatchSize
	if outBatch <= 0 {
		outBatch = DefaultOutBatchSize
	}

	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.Float64
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Engine{
		input:        opts.Input,
		output:       opts.Output,
		pricer:       pricer,
		sink:         sink,
		run:          opts.Run,
		mode:         mode,
		failure:      opts.FailureProbability,
		delayStart:   opts.DelayStart,
		taskDuration: opts.TaskDuration,
		memMB:        opts.MemUsageMB,
		outBatchSize: outBatch,
		rand:         rnd,
		observer:     opts.Observer,
		backend:      opts.Backend,
		logger:       logger,
	}
}

// window holds the per-invocation state of Run.
type window struct {
	agg      *metrics.Aggregator
	fetch    fetcher
	pipe     storage.Pipeline
	load     *syntheticLoad
	launched float64
	res      *Result
}

// Run processes trades [start, start+size) in increasing order. Metrics are
// recorded exactly once, including when the window aborts. An injected
// failure discards results staged since the last execution.
func (e *Engine) Run(ctx context.Context, start, size int64) (*Result, error) {
	if e.mode != ModeSynthetic && e.mode != ModePVOnly && e.mode != ModeDeltaVega {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, e.mode)
	}

	agg, err := metrics.New(metrics.EngineMeasures, e.sink, e.run.MetricTags(nil))
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	w := &window{
		agg:      agg,
		pipe:     e.output.Pipeline(),
		launched: e.run.LaunchUnix(),
		res:      &Result{},
	}
	if e.mode == ModeSynthetic && e.taskDuration > 0 {
		w.load = newSyntheticLoad(e.memMB)
	}

	if err := agg.Put(metrics.MeasureStartTime, w.launched); err != nil {
		return nil, err
	}
	if err := agg.Put(metrics.MeasureNumTrades, size); err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("mode", e.mode.String()).
		Int64("start_trade", start).
		Int64("trade_window", size).
		Msg("processing window")

	w.fetch = newFetcher(ctx, e.input)
	runErr := e.processWindow(ctx, w, start, size)
	w.fetch.close()

	end := float64(time.Now().UnixNano()) / 1e9
	if err := errors.Join(
		agg.Put(metrics.MeasureEndTime, end),
		agg.Put(metrics.MeasureTaskTime, end-w.launched),
	); err != nil {
		return w.res, errors.Join(runErr, err)
	}

	// Record even when the context is gone so completed work is reported.
	if err := agg.Record(context.WithoutCancel(ctx)); err != nil {
		e.logger.Warn().Err(err).Msg("export window metrics")
	}

	if runErr != nil {
		return w.res, runErr
	}

	e.logger.Info().
		Int("processed", w.res.Processed).
		Float64("task_time", end-w.launched).
		Msg("window complete")
	return w.res, nil
}

func (e *Engine) processWindow(ctx context.Context, w *window, start, size int64) error {
	for i := range size {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.processTrade(ctx, w, start+i, int(i), i == size-1); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) processTrade(ctx context.Context, w *window, n int64, idx int, last bool) error {
	// Fetch. An absent trade yields a nil payload; only decoding rejects it.
	readStart := time.Now()
	payload, err := w.fetch.fetch(ctx, n)
	if err != nil {
		return fmt.Errorf("fetch trade %d: %w", n, err)
	}
	if err := w.agg.Put(metrics.MeasureIOReadTime, time.Since(readStart).Seconds()); err != nil {
		return err
	}

	// FailureChecked
	if e.rand() < e.failure {
		if e.observer != nil {
			e.observer.ObserveInjectedFailure()
		}
		e.logger.Error().Int64("trade", n).Float64("probability", e.failure).Msg("injected failure, abandoning window")
		if err := w.agg.Put(metrics.MeasureFailed, 1); err != nil {
			return errors.Join(ErrInjectedFailure, err)
		}
		return fmt.Errorf("%w: trade %d", ErrInjectedFailure, n)
	}

	// Computed
	computeStart := time.Now()
	result, err := e.compute(ctx, w, n, payload)
	if err != nil {
		return err
	}
	computeTime := time.Since(computeStart).Seconds()
	if err := w.agg.Put(metrics.MeasureComputeTime, computeTime); err != nil {
		return err
	}
	if e.observer != nil {
		e.observer.ObserveTradeProcessed(computeTime)
	}
	if e.mode == ModeSynthetic {
		result.PVTimeSeconds = computeTime
	}

	// Written
	encoded, err := trade.EncodeResult(result)
	if err != nil {
		return err
	}
	w.pipe.Set(trade.ResultKey(n), encoded)
	w.res.Processed++

	if idx%e.outBatchSize != 0 && !last {
		return nil
	}

	writeStart := time.Now()
	err = w.pipe.Exec(ctx)
	writeTime := time.Since(writeStart)
	if e.observer != nil {
		e.observer.ObservePipelineExec(e.backend, writeTime.Seconds(), err)
	}
	if err != nil {
		return fmt.Errorf("write results at trade %d: %w", n, err)
	}
	w.res.Flushes = append(w.res.Flushes, idx)
	e.logger.Debug().Int64("trade", n).Dur("io_write_time", writeTime).Msg("results written")

	// Recorded
	return w.agg.Put(metrics.MeasureIOWriteTime, writeTime.Seconds())
}

func (e *Engine) compute(ctx context.Context, w *window, n int64, payload []byte) (trade.ResultRecord, error) {
	result := trade.ResultRecord{TradeNumber: n}

	if e.mode == ModeSynthetic {
		if w.load != nil {
			if err := w.load.run(ctx, e.delayStart, e.taskDuration); err != nil {
				return result, err
			}
		}
		return result, nil
	}

	rec, err := trade.Decode(payload)
	if err != nil {
		return result, fmt.Errorf("trade %d: %w", n, err)
	}
	fields := pricing.FieldsOf(rec)

	result.PV, result.PVTimeSeconds, err = e.pricer.PriceOption(ctx, fields)
	if err != nil {
		return result, fmt.Errorf("price trade %d: %w", n, err)
	}
	if err := errors.Join(
		w.agg.Put(metrics.MeasurePV, result.PV),
		w.agg.Put(metrics.MeasurePVTime, result.PVTimeSeconds),
	); err != nil {
		return result, err
	}

	if e.mode != ModeDeltaVega {
		return result, nil
	}

	delta, err := e.pricer.Risk(ctx, pricing.FactorFX1, fields)
	if err != nil {
		return result, fmt.Errorf("delta of trade %d: %w", n, err)
	}
	vega, err := e.pricer.Risk(ctx, pricing.FactorSigma1, fields)
	if err != nil {
		return result, fmt.Errorf("vega of trade %d: %w", n, err)
	}
	result.Delta = &delta
	result.Vega = &vega
	if err := errors.Join(
		w.agg.Put(metrics.MeasureDelta, delta),
		w.agg.Put(metrics.MeasureVega, vega),
	); err != nil {
		return result, err
	}
	return result, nil
}
