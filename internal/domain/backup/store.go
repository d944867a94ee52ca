package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const backupColumns = `id, filename, storage_type, storage_path, trigger_kind, status,
	size_bytes, checksum_sha256, error_message, started_at, completed_at, created_at`

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Create(ctx context.Context, b *Backup) error {
	const query = `
		INSERT INTO backups (id, filename, storage_type, storage_path, trigger_kind, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := s.pool.QueryRow(ctx, query,
		b.ID, b.Filename, b.StorageType, b.StoragePath, b.Trigger, b.Status, b.StartedAt,
	).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("create backup record: %w", err)
	}
	return nil
}

func (s *Store) MarkCompleted(ctx context.Context, id, storagePath string, sizeBytes int64, checksum string, completedAt time.Time) error {
	const query = `
		UPDATE backups
		SET status = $2, storage_path = $3, size_bytes = $4, checksum_sha256 = $5, completed_at = $6
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, StatusCompleted, storagePath, sizeBytes, checksum, completedAt)
	if err != nil {
		return fmt.Errorf("mark backup completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, id, errMsg string, completedAt time.Time) error {
	const query = `
		UPDATE backups
		SET status = $2, error_message = $3, completed_at = $4
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, StatusFailed, errMsg, completedAt)
	if err != nil {
		return fmt.Errorf("mark backup failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Backup, error) {
	query := fmt.Sprintf(`SELECT %s FROM backups WHERE id = $1`, backupColumns)

	b, err := scanBackup(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	return b, nil
}

func (s *Store) List(ctx context.Context, filter ListFilter) ([]Backup, error) {
	query, args := buildListQuery(fmt.Sprintf(`SELECT %s FROM backups`, backupColumns), filter, true)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var out []Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, filter ListFilter) (int64, error) {
	filter.Limit = 0
	filter.Offset = 0
	query, args := buildListQuery(`SELECT COUNT(*) FROM backups`, filter, false)

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count backups: %w", err)
	}
	return count, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM backups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete backup record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpired returns completed backups past the retention horizon.
// Pre-restore safety copies are never considered expired.
func (s *Store) ListExpired(ctx context.Context, before time.Time) ([]Backup, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM backups
		WHERE status = $1 AND trigger_kind <> $2 AND created_at < $3
		ORDER BY created_at ASC`, backupColumns)

	rows, err := s.pool.Query(ctx, query, StatusCompleted, TriggerPreRestore, before)
	if err != nil {
		return nil, fmt.Errorf("list expired backups: %w", err)
	}
	defer rows.Close()

	var out []Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) LastCompleted(ctx context.Context, trigger Trigger) (*Backup, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM backups
		WHERE status = $1 AND trigger_kind = $2
		ORDER BY completed_at DESC
		LIMIT 1`, backupColumns)

	b, err := scanBackup(s.pool.QueryRow(ctx, query, StatusCompleted, trigger))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last completed backup: %w", err)
	}
	return b, nil
}

func buildListQuery(base string, filter ListFilter, ordered bool) (string, []any) {
	query := base
	var (
		args  []any
		where []string
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Trigger != "" {
		args = append(args, filter.Trigger)
		where = append(where, fmt.Sprintf("trigger_kind = $%d", len(args)))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	if ordered {
		query += " ORDER BY created_at DESC"
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBackup(row rowScanner) (*Backup, error) {
	var b Backup
	err := row.Scan(
		&b.ID, &b.Filename, &b.StorageType, &b.StoragePath, &b.Trigger, &b.Status,
		&b.SizeBytes, &b.ChecksumSHA256, &b.Error, &b.StartedAt, &b.CompletedAt, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
