package engine

import (
	"context"
	"iter"

	"azfinsim/internal/storage"
	"azfinsim/internal/trade"
)

// fetcher returns the payload of trade n, or nil if the trade is absent.
// Calls come in increasing n.
type fetcher interface {
	fetch(ctx context.Context, n int64) ([]byte, error)
	close()
}

func newFetcher(ctx context.Context, in storage.Store) fetcher {
	if sc, ok := in.(storage.Scanner); ok {
		next, stop := iter.Pull2(sc.Scan(ctx))
		return &scanFetcher{next: next, stop: stop}
	}
	return &getFetcher{store: in}
}

// getFetcher reads by key.
type getFetcher struct {
	store storage.Store
}

func (f *getFetcher) fetch(ctx context.Context, n int64) ([]byte, error) {
	return f.store.Get(ctx, trade.Key(n))
}

func (f *getFetcher) close() {}

// scanFetcher walks a sequential store forward, skipping earlier trades.
// Keys are lexically ordered by trade number, so a key past the wanted
// one means the trade is absent; that entry is held for the next call.
type scanFetcher struct {
	next    func() (storage.Entry, error, bool)
	stop    func()
	pending *storage.Entry
	done    bool
}

func (f *scanFetcher) fetch(_ context.Context, n int64) ([]byte, error) {
	want := trade.Key(n)
	for {
		e, ok, err := f.peek()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		switch {
		case e.Key < want:
			f.pending = nil
		case e.Key == want:
			f.pending = nil
			return e.Value, nil
		default:
			return nil, nil
		}
	}
}

func (f *scanFetcher) peek() (storage.Entry, bool, error) {
	if f.pending != nil {
		return *f.pending, true, nil
	}
	if f.done {
		return storage.Entry{}, false, nil
	}
	e, err, ok := f.next()
	if !ok {
		f.done = true
		return storage.Entry{}, false, nil
	}
	if err != nil {
		return storage.Entry{}, false, err
	}
	f.pending = &e
	return e, true, nil
}

func (f *scanFetcher) close() {
	f.stop()
}
