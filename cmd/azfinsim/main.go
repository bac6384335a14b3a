// Command azfinsim processes one window of trades from the cache and writes
// the results back.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"azfinsim/internal/config"
	"azfinsim/internal/engine"
	"azfinsim/internal/logging"
	"azfinsim/internal/run"
	"azfinsim/internal/storage/backend"
	"azfinsim/internal/telemetry"
)

func main() {
	if err := execute(os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "azfinsim: %v\n", err)
		os.Exit(1)
	}
}

func execute(args []string) error {
	cfg, err := config.Load(config.ToolEngine, args)
	if err != nil {
		return err
	}

	logger, logCloser := logging.New(cfg.Logging())
	defer logCloser.Close()
	logger = logger.With().Str("tool", config.ToolEngine).Logger()

	mode, err := engine.ParseMode(cfg.Algorithm)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	info := run.New(config.ToolEngine, cfg.Tags)
	logger.Info().
		Str("run_id", info.ID).
		Str("algorithm", mode.String()).
		Str("cache_type", cfg.CacheType).
		Msg("starting")

	tel, err := telemetry.Open(ctx, cfg.Telemetry(), info, logger)
	if err != nil {
		return err
	}
	defer tel.Close()

	storeCfg := cfg.Store()
	in, out, err := backend.OpenPair(ctx, storeCfg)
	if err != nil {
		return err
	}
	defer backend.ClosePair(in, out)

	eng := engine.New(engine.Options{
		Input:              in,
		Output:             out,
		Sink:               tel.Sink,
		Run:                info,
		Mode:               mode,
		FailureProbability: cfg.Failure,
		DelayStart:         cfg.DelayStartValue(),
		TaskDuration:       cfg.TaskDurationValue(),
		MemUsageMB:         cfg.MemUsage,
		Observer:           tel.Observer,
		Backend:            storeCfg.Kind.String(),
		Logger:             &logger,
	})

	res, err := eng.Run(ctx, cfg.StartTrade, cfg.TradeWindow)
	if err != nil {
		logger.Error().Err(err).Msg("window aborted")
		return err
	}
	logger.Info().Int("processed", res.Processed).Int("flushes", len(res.Flushes)).Msg("done")
	return nil
}
