package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
)

// HistoryStore implements history.Sink on the workflow_records table.
type HistoryStore struct {
	pool       *pgxpool.Pool
	maxRecords int // 0 = unbounded
}

// NewHistoryStore creates a history store that prunes to maxRecords rows.
func NewHistoryStore(pool *pgxpool.Pool, maxRecords int) *HistoryStore {
	return &HistoryStore{pool: pool, maxRecords: maxRecords}
}

// Append stores rec and prunes the oldest rows beyond the retention limit.
func (h *HistoryStore) Append(ctx context.Context, rec *workflow.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal workflow %s: %w", rec.ID, err)
	}

	tx, err := h.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("append workflow begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO workflow_records (id, request_type, status, record, created_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, string(rec.Request.Type), string(rec.Status), data, rec.StartedAt); err != nil {
		return fmt.Errorf("append workflow %s: %w", rec.ID, err)
	}

	if h.maxRecords > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM workflow_records WHERE id IN (
			   SELECT id FROM workflow_records ORDER BY created_at DESC OFFSET $1)`, h.maxRecords); err != nil {
			return fmt.Errorf("prune workflow records: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// List returns up to limit records, newest first.
func (h *HistoryStore) List(ctx context.Context, limit int) ([]workflow.Record, error) {
	var lim any // NULL = no limit
	if limit > 0 {
		lim = limit
	}
	rows, err := h.pool.Query(ctx,
		`SELECT record FROM workflow_records ORDER BY created_at DESC LIMIT $1`, lim)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (workflow.Record, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan workflows: %w", err)
	}
	return orEmpty(recs), nil
}

// Get returns one record by id.
func (h *HistoryStore) Get(ctx context.Context, id string) (*workflow.Record, error) {
	rec, err := scanRecord(h.pool.QueryRow(ctx, `SELECT record FROM workflow_records WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get workflow %s", id)
	}
	return &rec, nil
}

func scanRecord(row scannable) (workflow.Record, error) {
	var (
		data []byte
		rec  workflow.Record
	)
	if err := row.Scan(&data); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("unmarshal workflow record: %w", err)
	}
	return rec, nil
}
