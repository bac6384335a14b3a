// Package file implements storage.Store on a flat file of alternating
// key and value lines. It supports sequential reads and batched appends only.
package file

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"iter"
	"os"
	"sync"

	"azfinsim/internal/storage"
)

// maxLineSize bounds a single key or value line when scanning.
const maxLineSize = 16 << 20

// Store is a file-backed trade dump.
// A Store is either an input handle (read-only) or an output handle
// (created and truncated on open, write-only).
type Store struct {
	path    string
	asInput bool

	mu sync.Mutex
	f  *os.File
}

// Compile-time interface checks.
var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Scanner = (*Store)(nil)
)

// Open opens path as an input or output handle.
// Failure to open returns storage.ErrConnection.
func Open(path string, asInput bool) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: file path is required", storage.ErrInvalidInput)
	}

	var (
		f   *os.File
		err error
	)
	if asInput {
		f, err = os.Open(path)
	} else {
		f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", storage.ErrConnection, path, err)
	}

	return &Store{path: path, asInput: asInput, f: f}, nil
}

// Path returns the file path of this handle.
func (s *Store) Path() string {
	return s.path
}

// Get is not supported on file stores.
func (s *Store) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, fmt.Errorf("%w: get on file store", storage.ErrNotSupported)
}

// Set is not supported on file stores; use a Pipeline.
func (s *Store) Set(_ context.Context, _ string, _ []byte) error {
	return fmt.Errorf("%w: set on file store", storage.ErrNotSupported)
}

// Pipeline returns a staging buffer whose Exec appends to the file.
func (s *Store) Pipeline() storage.Pipeline {
	return &pipeline{owner: s}
}

// ConcurrentPipelines reports false: the record order in the file is the
// order of Exec calls, so writers must be serialized by the caller.
func (s *Store) ConcurrentPipelines() bool {
	return false
}

// Close closes the file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// Scan yields entries from an input handle in file order.
// A trailing key without a value line is reported as storage.ErrIO.
func (s *Store) Scan(ctx context.Context) iter.Seq2[storage.Entry, error] {
	return func(yield func(storage.Entry, error) bool) {
		if !s.asInput {
			yield(storage.Entry{}, fmt.Errorf("%w: scan on output file store", storage.ErrNotSupported))
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.f == nil {
			yield(storage.Entry{}, fmt.Errorf("%w: scan on closed file store", storage.ErrIO))
			return
		}

		scanner := bufio.NewScanner(s.f)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)

		var (
			key    string
			hasKey bool
		)
		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				yield(storage.Entry{}, err)
				return
			}

			line := scanner.Bytes()
			if !hasKey {
				if len(line) == 0 {
					continue
				}
				key = string(line)
				hasKey = true
				continue
			}

			hasKey = false
			if !yield(storage.Entry{Key: key, Value: bytes.Clone(line)}, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(storage.Entry{}, fmt.Errorf("%w: scan %s: %w", storage.ErrIO, s.path, err))
			return
		}
		if hasKey {
			yield(storage.Entry{}, fmt.Errorf("%w: key %q has no value line", storage.ErrIO, key))
		}
	}
}

type pipeline struct {
	owner *Store
	buf   bytes.Buffer
	n     int
}

func (p *pipeline) Set(key string, value []byte) {
	p.buf.WriteString(key)
	p.buf.WriteByte('\n')
	p.buf.Write(value)
	p.buf.WriteByte('\n')
	p.n++
}

func (p *pipeline) Len() int {
	return p.n
}

// Exec appends all staged entries with a single write and clears the stage.
func (p *pipeline) Exec(_ context.Context) error {
	s := p.owner
	if s.asInput {
		return fmt.Errorf("%w: write to input file store", storage.ErrNotSupported)
	}
	if p.n == 0 {
		return nil
	}

	defer func() {
		p.buf.Reset()
		p.n = 0
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return fmt.Errorf("%w: write to closed file store", storage.ErrIO)
	}
	if _, err := s.f.Write(p.buf.Bytes()); err != nil {
		return fmt.Errorf("%w: write %s: %w", storage.ErrIO, s.path, err)
	}
	return nil
}
