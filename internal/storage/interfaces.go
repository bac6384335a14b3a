package storage

import (
	"context"
	"iter"
)

// Store is a key-value connection to a trade cache.
// A Store owns exactly one underlying I/O handle.
type Store interface {
	// Get returns the value stored under key, or nil with no error if the key is absent.
	// Returns ErrNotSupported on write-only or stream-only backends.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes one value immediately. Returns ErrNotSupported on stream-only backends.
	Set(ctx context.Context, key string, value []byte) error

	// Pipeline returns a new, empty staging buffer bound to this connection.
	// A Pipeline must not be shared between goroutines.
	Pipeline() Pipeline

	// ConcurrentPipelines reports whether pipelines from this connection may be
	// executed from several goroutines at once.
	ConcurrentPipelines() bool

	// Close releases the underlying handle.
	Close() error
}

// Pipeline stages writes and applies them in one round trip.
type Pipeline interface {
	// Set stages a write. Nothing is sent until Exec.
	Set(key string, value []byte)

	// Len returns the number of staged writes.
	Len() int

	// Exec applies all staged writes as one operation and clears the buffer.
	// On ErrIO the batch must be treated as not applied and retried as a whole.
	Exec(ctx context.Context) error
}

// Entry is one key-value pair read back from a sequential backend.
type Entry struct {
	Key   string
	Value []byte
}

// Scanner is implemented by sequential backends that cannot serve Get.
// Entries are yielded in storage order.
type Scanner interface {
	Scan(ctx context.Context) iter.Seq2[Entry, error]
}
