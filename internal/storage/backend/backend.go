// Package backend opens the store implementation selected by storage.Config.
package backend

import (
	"context"
	"fmt"

	"azfinsim/internal/storage"
	"azfinsim/internal/storage/file"
	"azfinsim/internal/storage/memory"
	"azfinsim/internal/storage/redis"
)

// Open returns one connection for cfg.Kind.
// asInput only matters for file stores, where it selects a read-only handle.
func Open(ctx context.Context, cfg storage.Config, asInput bool) (storage.Store, error) {
	switch cfg.Kind {
	case storage.KindRedis:
		return redis.Open(ctx, cfg)
	case storage.KindFile:
		return file.Open(cfg.Path, asInput)
	case storage.KindMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownKind, cfg.Kind)
	}
}

// OpenPair returns the input and output connections of a processing run.
// Network and memory stores serve both sides with one connection; file stores
// read cfg.Path and write cfg.Path + storage.OutputSuffix.
func OpenPair(ctx context.Context, cfg storage.Config) (in, out storage.Store, err error) {
	if cfg.Kind != storage.KindFile {
		s, err := Open(ctx, cfg, true)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}

	in, err = file.Open(cfg.Path, true)
	if err != nil {
		return nil, nil, err
	}
	out, err = file.Open(cfg.Path+storage.OutputSuffix, false)
	if err != nil {
		in.Close()
		return nil, nil, err
	}
	return in, out, nil
}

// ClosePair closes both sides of a pair, closing a shared connection once.
func ClosePair(in, out storage.Store) error {
	var firstErr error
	if in != nil {
		firstErr = in.Close()
	}
	if out != nil && out != in {
		if err := out.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
