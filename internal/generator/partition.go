package generator

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
)

// MaxBatchSize caps the number of trades staged in one pipeline.
const MaxBatchSize = 10000

// Batch is a contiguous trade range [Start, Start+Count).
type Batch struct {
	Start int64
	Count int
}

// End returns the first trade number after the batch.
func (b Batch) End() int64 {
	return b.Start + int64(b.Count)
}

// Partition splits [start, start+window) into consecutive batches of
// batchSize trades; the last batch may be shorter. batchSize is clamped
// to [1, MaxBatchSize]. A non-positive window yields no batches.
func Partition(start, window int64, batchSize int) []Batch {
	if window <= 0 {
		return nil
	}
	batchSize = min(MaxBatchSize, max(1, batchSize))

	n := (window + int64(batchSize) - 1) / int64(batchSize)
	batches := make([]Batch, 0, n)
	end := start + window
	for s := start; s < end; s += int64(batchSize) {
		batches = append(batches, Batch{Start: s, Count: int(min(int64(batchSize), end-s))})
	}
	return batches
}

// DefaultBatchSize spreads window evenly over workers:
// min(MaxBatchSize, max(1, ceil(window/workers))).
func DefaultBatchSize(window int64, workers int) int {
	workers = max(1, workers)
	per := (window + int64(workers) - 1) / int64(workers)
	return int(min(int64(MaxBatchSize), max(1, per)))
}

// DefaultWorkers returns the logical core count, falling back to runtime.NumCPU.
func DefaultWorkers(ctx context.Context) int {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}
