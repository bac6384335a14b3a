// Command load copies trades from a dump file into the redis cache, or with
// --dump from the cache into a dump file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"azfinsim/internal/config"
	"azfinsim/internal/logging"
	"azfinsim/internal/run"
	"azfinsim/internal/storage/backend"
	"azfinsim/internal/storage/file"
	"azfinsim/internal/telemetry"
	"azfinsim/internal/transfer"
)

const toolTag = "azfinsim.load"

func main() {
	if err := execute(os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "load: %v\n", err)
		os.Exit(1)
	}
}

func execute(args []string) error {
	cfg, err := config.Load(config.ToolLoad, args)
	if err != nil {
		return err
	}

	logger, logCloser := logging.New(cfg.Logging())
	defer logCloser.Close()
	logger = logger.With().Str("tool", toolTag).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	info := run.New(toolTag, cfg.Tags)

	tel, err := telemetry.Open(ctx, cfg.Telemetry(), info, logger)
	if err != nil {
		return err
	}
	defer tel.Close()

	storeCfg := cfg.Store()
	cache, err := backend.Open(ctx, storeCfg, false)
	if err != nil {
		return err
	}
	defer cache.Close()

	copier := transfer.New(transfer.Options{
		BatchSize: cfg.BatchSize,
		Sink:      tel.Sink,
		Run:       info,
		Observer:  tel.Observer,
		Backend:   storeCfg.Kind.String(),
		Logger:    &logger,
	})

	if cfg.Dump {
		logger.Info().Str("path", cfg.CachePath).Int64("trade_window", cfg.TradeWindow).Msg("dumping cache")
		dst, err := file.Open(cfg.CachePath, false)
		if err != nil {
			return err
		}
		_, err = copier.Dump(ctx, cache, dst, cfg.StartTrade, cfg.TradeWindow)
		return errors.Join(err, dst.Close())
	}

	logger.Info().Str("path", cfg.CachePath).Msg("loading cache")
	src, err := file.Open(cfg.CachePath, true)
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = copier.Load(ctx, src, cache, cfg.StartTrade, cfg.TradeWindow)
	return err
}
