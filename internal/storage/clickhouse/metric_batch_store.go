package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"azfinsim/internal/metrics"
	"azfinsim/internal/storage"
)

// MetricBatchStore implements storage.MetricBatchStore using ClickHouse.
// MergeTree does not enforce uniqueness, so duplicate rows are accepted.
type MetricBatchStore struct {
	conn *Conn
	now  func() time.Time
}

// NewMetricBatchStore creates a new MetricBatchStore.
func NewMetricBatchStore(conn *Conn) *MetricBatchStore {
	return &MetricBatchStore{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.MetricBatchStore = (*MetricBatchStore)(nil)

// Export persists a flushed batch, one row per value.
func (s *MetricBatchStore) Export(ctx context.Context, batch metrics.Batch) error {
	return s.InsertBulk(ctx, storage.MetricRecordsFromBatch(batch, s.now()))
}

// InsertBulk sends all records as one native batch.
func (s *MetricBatchStore) InsertBulk(ctx context.Context, records []storage.MetricRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO metric_batches (
			batch_id, run_id, tool, measure, unit, aggregation,
			value, put_count, tags, recorded_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		batchID, err := uuid.Parse(r.BatchID)
		if err != nil {
			return fmt.Errorf("%w: batch id %q: %v", storage.ErrInvalidInput, r.BatchID, err)
		}
		tags := r.Tags
		if tags == nil {
			tags = map[string]string{}
		}

		err = batch.Append(
			batchID, r.RunID, r.Tool, r.Measure, r.Unit, r.Aggregation,
			r.Value, uint32(r.Count), tags, r.RecordedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRun returns all records of a run.
func (s *MetricBatchStore) GetByRun(ctx context.Context, runID string) ([]storage.MetricRecord, error) {
	query := `
		SELECT
			batch_id, run_id, tool, measure, unit, aggregation,
			value, put_count, tags, recorded_at
		FROM metric_batches
		WHERE run_id = ?
		ORDER BY recorded_at, batch_id, measure
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query metric records: %w", err)
	}
	defer rows.Close()

	var records []storage.MetricRecord
	for rows.Next() {
		var (
			r        storage.MetricRecord
			batchID  uuid.UUID
			putCount uint32
		)
		err := rows.Scan(
			&batchID, &r.RunID, &r.Tool, &r.Measure, &r.Unit, &r.Aggregation,
			&r.Value, &putCount, &r.Tags, &r.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metric record: %w", err)
		}
		r.BatchID = batchID.String()
		r.Count = int(putCount)
		r.RecordedAt = r.RecordedAt.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric records: %w", err)
	}

	return records, nil
}
