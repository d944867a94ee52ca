package incident

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const incidentColumns = "id, worker_id, description, status, created_at, updated_at, resolved_at"

func (s *Store) Create(ctx context.Context, workerID, description string) (*Incident, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO incidents (worker_id, description, status)
    VALUES ($1, $2, $3)
    RETURNING `+incidentColumns+`
  `, workerID, description, StatusPending)
	return scanIncident(row)
}

func (s *Store) Get(ctx context.Context, incidentID string) (*Incident, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+incidentColumns+`
    FROM incidents
    WHERE id = $1
  `, incidentID)
	inc, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return inc, err
}

func (s *Store) List(ctx context.Context, workerID string, status Status) ([]Incident, error) {
	query := "SELECT " + incidentColumns + " FROM incidents WHERE 1=1"
	var args []any
	if workerID != "" {
		args = append(args, workerID)
		query += " AND worker_id = $1"
	}
	if status != "" {
		args = append(args, status)
		if len(args) == 1 {
			query += " AND status = $1"
		} else {
			query += " AND status = $2"
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incidents []Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, *inc)
	}
	return incidents, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, incidentID string, status Status) (*Incident, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE incidents
    SET status = $1,
        updated_at = now(),
        resolved_at = CASE WHEN $1 = 'resolved' THEN now() ELSE resolved_at END
    WHERE id = $2
    RETURNING `+incidentColumns+`
  `, status, incidentID)
	inc, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return inc, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*Incident, error) {
	var inc Incident
	if err := row.Scan(&inc.ID, &inc.WorkerID, &inc.Description, &inc.Status, &inc.CreatedAt, &inc.UpdatedAt, &inc.ResolvedAt); err != nil {
		return nil, err
	}
	return &inc, nil
}
