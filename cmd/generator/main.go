// Command generator fills the trade cache with synthetic trades.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"azfinsim/internal/config"
	"azfinsim/internal/generator"
	"azfinsim/internal/logging"
	"azfinsim/internal/run"
	"azfinsim/internal/storage/backend"
	"azfinsim/internal/telemetry"
)

// toolTag is the tool tag attached to every generator metric.
const toolTag = "azfinsim.generator"

func main() {
	if err := execute(os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "generator: %v\n", err)
		os.Exit(1)
	}
}

func execute(args []string) error {
	cfg, err := config.Load(config.ToolGenerator, args)
	if err != nil {
		return err
	}

	logger, logCloser := logging.New(cfg.Logging())
	defer logCloser.Close()
	logger = logger.With().Str("tool", toolTag).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	info := run.New(toolTag, cfg.Tags)
	logger.Info().Str("run_id", info.ID).Str("cache_type", cfg.CacheType).Msg("starting generator")

	tel, err := telemetry.Open(ctx, cfg.Telemetry(), info, logger)
	if err != nil {
		return err
	}
	defer tel.Close()

	storeCfg := cfg.Store()

	store, err := backend.Open(ctx, storeCfg, false)
	if err != nil {
		return err
	}
	defer store.Close()

	gen := generator.New(generator.Options{
		Store:     store,
		Sink:      tel.Sink,
		Run:       info,
		Workers:   cfg.Threads,
		BatchSize: cfg.BatchSize,
		Observer:  tel.Observer,
		Backend:   storeCfg.Kind.String(),
		Logger:    &logger,
	})

	if _, err := gen.Run(ctx, cfg.StartTrade, cfg.TradeWindow); err != nil {
		logger.Error().Err(err).Msg("generation failed")
		return err
	}
	return nil
}
