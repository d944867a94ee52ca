package timerecord

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const recordColumns = `id, worker_id, company_id, company_name, record_type,
           recorded_at, local_time, utc_offset_minutes, duration_seconds, open, created_at`

func (s *Store) Latest(ctx context.Context, workerID string) (*TimeRecord, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM time_records
    WHERE worker_id = $1
    ORDER BY recorded_at DESC, created_at DESC
    LIMIT 1
  `, workerID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (s *Store) InsertEntry(ctx context.Context, rec *TimeRecord) error {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO time_records (worker_id, company_id, company_name, record_type, recorded_at, local_time, utc_offset_minutes, open)
    VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
    RETURNING id, created_at
  `, rec.WorkerID, rec.CompanyID, rec.CompanyName, rec.Type, rec.RecordedAt, rec.LocalTime, rec.UTCOffsetMinutes).
		Scan(&rec.ID, &rec.CreatedAt)
	if isOpenEntryConflict(err) {
		return ErrConcurrentEntry
	}
	if err != nil {
		return err
	}
	rec.Open = true
	return nil
}

func (s *Store) InsertExit(ctx context.Context, entryID string, rec *TimeRecord) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
    UPDATE time_records
    SET open = FALSE
    WHERE id = $1 AND open
  `, entryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// The entry was closed by a concurrent submission between our read
		// and this write.
		return ErrConcurrentEntry
	}

	err = tx.QueryRow(ctx, `
    INSERT INTO time_records (worker_id, company_id, company_name, record_type, recorded_at, local_time, utc_offset_minutes, duration_seconds, open)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE)
    RETURNING id, created_at
  `, rec.WorkerID, rec.CompanyID, rec.CompanyName, rec.Type, rec.RecordedAt, rec.LocalTime, rec.UTCOffsetMinutes, rec.DurationSeconds).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) List(ctx context.Context, filter ListFilter) ([]TimeRecord, error) {
	query, args := buildListQuery("SELECT "+recordColumns, filter, true)
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []TimeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *Store) Count(ctx context.Context, filter ListFilter) (int, error) {
	query, args := buildListQuery("SELECT COUNT(1)", filter, false)
	var count int
	err := s.DB.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func buildListQuery(selectClause string, filter ListFilter, paged bool) (string, []any) {
	query := selectClause + " FROM time_records WHERE 1=1"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.WorkerID != "" {
		query += " AND worker_id = " + arg(filter.WorkerID)
	}
	if filter.CompanyID != "" {
		query += " AND company_id = " + arg(filter.CompanyID)
	}
	if !filter.From.IsZero() {
		query += " AND recorded_at >= " + arg(filter.From)
	}
	if !filter.To.IsZero() {
		query += " AND recorded_at < " + arg(filter.To)
	}
	if paged {
		query += " ORDER BY recorded_at DESC, created_at DESC"
		if filter.Limit > 0 {
			query += " LIMIT " + arg(filter.Limit)
		}
		if filter.Offset > 0 {
			query += " OFFSET " + arg(filter.Offset)
		}
	}
	return query, args
}

// isOpenEntryConflict detects a violation of the partial unique index that
// allows at most one open entry per worker.
func isOpenEntryConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "time_records_one_open_per_worker"
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*TimeRecord, error) {
	var rec TimeRecord
	if err := row.Scan(
		&rec.ID, &rec.WorkerID, &rec.CompanyID, &rec.CompanyName, &rec.Type,
		&rec.RecordedAt, &rec.LocalTime, &rec.UTCOffsetMinutes, &rec.DurationSeconds, &rec.Open, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}
