package storage

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"

	"azfinsim/internal/metrics"
)

// MetricRecord is one persisted measure value of a flushed metric batch.
type MetricRecord struct {
	BatchID     string
	RunID       string
	Tool        string
	Measure     string
	Unit        string
	Aggregation string
	Value       float64
	Count       int
	Tags        map[string]string
	RecordedAt  time.Time
}

// MetricBatchStore persists flushed metric batches.
// Implementations also satisfy metrics.Sink through Export.
type MetricBatchStore interface {
	metrics.Sink

	// InsertBulk adds all records atomically.
	InsertBulk(ctx context.Context, records []MetricRecord) error

	// GetByRun returns the records of a run ordered by recorded_at, batch_id, measure.
	GetByRun(ctx context.Context, runID string) ([]MetricRecord, error)
}

// Tag keys read from a batch into dedicated columns.
const (
	TagTool  = "tool"
	TagRunID = "run_id"
)

// MetricRecordsFromBatch flattens a batch into one record per value.
// All records share a fresh batch id and the given timestamp.
func MetricRecordsFromBatch(batch metrics.Batch, recordedAt time.Time) []MetricRecord {
	if len(batch.Values) == 0 {
		return nil
	}

	batchID := uuid.NewString()
	records := make([]MetricRecord, 0, len(batch.Values))
	for _, v := range batch.Values {
		records = append(records, MetricRecord{
			BatchID:     batchID,
			RunID:       batch.Tags[TagRunID],
			Tool:        batch.Tags[TagTool],
			Measure:     v.Measure.Name,
			Unit:        v.Measure.Unit,
			Aggregation: v.Measure.Aggregation.String(),
			Value:       v.Number(),
			Count:       v.Count,
			Tags:        maps.Clone(batch.Tags),
			RecordedAt:  recordedAt.UTC(),
		})
	}
	return records
}
