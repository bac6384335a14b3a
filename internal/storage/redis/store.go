// Package redis implements storage.Store on top of a Redis-compatible server.
package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"azfinsim/internal/storage"
)

// Store is a network key-value store backed by go-redis.
// The underlying client is a connection pool and is safe for concurrent use.
type Store struct {
	client *goredis.Client
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// Open connects to the server described by cfg and verifies it with PING.
// An unreachable server or rejected credentials return storage.ErrConnection.
func Open(ctx context.Context, cfg storage.Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: redis host is required", storage.ErrInvalidInput)
	}

	port := cfg.Port
	if port == 0 {
		port = storage.DefaultRedisPort
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = storage.DefaultDialTimeout
	}

	opts := &goredis.Options{
		Addr:        net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: dialTimeout,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			ServerName:         cfg.Host,
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // operator opt-in
		}
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping redis %s: %w", storage.ErrConnection, opts.Addr, err)
	}

	return &Store{client: client}, nil
}

// Get returns the value stored under key, or nil if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", storage.ErrIO, key, err)
	}
	return val, nil
}

// Set writes value under key without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %w", storage.ErrIO, key, err)
	}
	return nil
}

// Pipeline returns a staging buffer that is sent in one round trip on Exec.
func (s *Store) Pipeline() storage.Pipeline {
	return &pipeline{client: s.client}
}

// ConcurrentPipelines reports true: each pipeline borrows its own pooled connection.
func (s *Store) ConcurrentPipelines() bool {
	return true
}

// Close releases all pooled connections.
func (s *Store) Close() error {
	return s.client.Close()
}

type pipeline struct {
	client  *goredis.Client
	entries []storage.Entry
}

func (p *pipeline) Set(key string, value []byte) {
	p.entries = append(p.entries, storage.Entry{Key: key, Value: value})
}

func (p *pipeline) Len() int {
	return len(p.entries)
}

// Exec sends every staged SET in one pipelined round trip and clears the stage.
// The stage is cleared even on failure; callers retry by rebuilding the batch.
func (p *pipeline) Exec(ctx context.Context) error {
	if len(p.entries) == 0 {
		return nil
	}
	entries := p.entries
	p.entries = nil

	pipe := p.client.Pipeline()
	for _, e := range entries {
		pipe.Set(ctx, e.Key, e.Value, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: exec pipeline of %d sets: %w", storage.ErrIO, len(entries), err)
	}
	return nil
}
