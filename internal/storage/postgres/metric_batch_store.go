package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"azfinsim/internal/metrics"
	"azfinsim/internal/storage"
)

// MetricBatchStore implements storage.MetricBatchStore using PostgreSQL.
type MetricBatchStore struct {
	pool *Pool
	now  func() time.Time
}

// NewMetricBatchStore creates a new MetricBatchStore.
func NewMetricBatchStore(pool *Pool) *MetricBatchStore {
	return &MetricBatchStore{pool: pool, now: time.Now}
}

// Compile-time interface check.
var _ storage.MetricBatchStore = (*MetricBatchStore)(nil)

// Export persists a flushed batch, one row per value.
func (s *MetricBatchStore) Export(ctx context.Context, batch metrics.Batch) error {
	return s.InsertBulk(ctx, storage.MetricRecordsFromBatch(batch, s.now()))
}

// InsertBulk adds all records in one transaction. Fails entire batch on any duplicate.
func (s *MetricBatchStore) InsertBulk(ctx context.Context, records []storage.MetricRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO metric_batches (
			batch_id, run_id, tool, measure, unit, aggregation,
			value, put_count, tags, recorded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10
		)
	`

	for _, r := range records {
		tags, err := json.Marshal(r.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags: %w", err)
		}

		_, err = tx.Exec(ctx, query,
			r.BatchID, r.RunID, r.Tool, r.Measure, r.Unit, r.Aggregation,
			r.Value, r.Count, tags, r.RecordedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert metric record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRun returns all records of a run.
func (s *MetricBatchStore) GetByRun(ctx context.Context, runID string) ([]storage.MetricRecord, error) {
	query := `
		SELECT
			batch_id::text, run_id, tool, measure, unit, aggregation,
			value, put_count, tags, recorded_at
		FROM metric_batches
		WHERE run_id = $1
		ORDER BY recorded_at, batch_id, measure
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query metric records: %w", err)
	}
	defer rows.Close()

	return scanMetricRecords(rows)
}

func scanMetricRecords(rows pgx.Rows) ([]storage.MetricRecord, error) {
	var records []storage.MetricRecord
	for rows.Next() {
		var (
			r    storage.MetricRecord
			tags []byte
		)
		err := rows.Scan(
			&r.BatchID, &r.RunID, &r.Tool, &r.Measure, &r.Unit, &r.Aggregation,
			&r.Value, &r.Count, &tags, &r.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metric record: %w", err)
		}
		if err := json.Unmarshal(tags, &r.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
		r.RecordedAt = r.RecordedAt.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric records: %w", err)
	}
	return records, nil
}
