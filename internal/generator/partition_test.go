package generator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		name      string
		start     int64
		window    int64
		batchSize int
		want      []Batch
	}{
		{
			name: "uneven tail", start: 0, window: 25, batchSize: 10,
			want: []Batch{{0, 10}, {10, 10}, {20, 5}},
		},
		{
			name: "offset start", start: 100, window: 4, batchSize: 2,
			want: []Batch{{100, 2}, {102, 2}},
		},
		{
			name: "batch larger than window", start: 7, window: 3, batchSize: 100,
			want: []Batch{{7, 3}},
		},
		{
			name: "zero batch size clamps to one", start: 0, window: 3, batchSize: 0,
			want: []Batch{{0, 1}, {1, 1}, {2, 1}},
		},
		{name: "empty window", start: 0, window: 0, batchSize: 10, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Partition(tt.start, tt.window, tt.batchSize))
		})
	}
}

func TestPartition_CapsBatchSize(t *testing.T) {
	batches := Partition(0, 25000, 50000)
	assert.Len(t, batches, 3)
	assert.Equal(t, MaxBatchSize, batches[0].Count)
	assert.Equal(t, 5000, batches[2].Count)
}

func TestPartition_CoversWindowExactly(t *testing.T) {
	const start, window = 12345, 98765
	batches := Partition(start, window, 777)

	next := int64(start)
	for _, b := range batches {
		assert.Equal(t, next, b.Start, "gap or overlap at %d", b.Start)
		next = b.End()
	}
	assert.Equal(t, int64(start+window), next)
}

func TestDefaultBatchSize(t *testing.T) {
	tests := []struct {
		window  int64
		workers int
		want    int
	}{
		{window: 25, workers: 1, want: 25},
		{window: 25, workers: 4, want: 7},
		{window: 0, workers: 8, want: 1},
		{window: 1_000_000, workers: 8, want: MaxBatchSize},
		{window: 10, workers: 0, want: 10},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultBatchSize(tt.window, tt.workers), "window=%d workers=%d", tt.window, tt.workers)
	}
}

func TestDefaultWorkers(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultWorkers(context.Background()), 1)
}
