package directory

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

const companyColumns = "id, name, created_at, updated_at, deleted_at, COALESCE(deleted_by, '')"

func (s *Store) CreateCompany(ctx context.Context, name string) (*Company, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO companies (name)
    VALUES ($1)
    RETURNING `+companyColumns+`
  `, name)
	return scanCompany(row)
}

func (s *Store) GetCompany(ctx context.Context, companyID string) (*Company, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+companyColumns+`
    FROM companies
    WHERE id = $1 AND deleted_at IS NULL
  `, companyID)
	company, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return company, err
}

func (s *Store) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+companyColumns+`
    FROM companies
    WHERE deleted_at IS NULL
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, *company)
	}
	return companies, rows.Err()
}

func (s *Store) UpdateCompany(ctx context.Context, companyID, name string) (*Company, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE companies
    SET name = $1, updated_at = now()
    WHERE id = $2 AND deleted_at IS NULL
    RETURNING `+companyColumns+`
  `, name, companyID)
	company, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCompanyNotFound
	}
	return company, err
}

func (s *Store) SoftDeleteCompany(ctx context.Context, companyID, deletedBy string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE companies
    SET deleted_at = now(), deleted_by = $1
    WHERE id = $2 AND deleted_at IS NULL
  `, deletedBy, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

const workerColumns = `id, first_name, last_name, email, COALESCE(phone, ''), id_number,
           company_ids, password_hash, COALESCE(created_by, ''),
           created_at, updated_at, deleted_at, COALESCE(deleted_by, '')`

func (s *Store) CreateWorker(ctx context.Context, w *Worker) error {
	return s.DB.QueryRow(ctx, `
    INSERT INTO workers (first_name, last_name, email, phone, id_number, company_ids, password_hash, created_by)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    RETURNING id, created_at, updated_at
  `, w.FirstName, w.LastName, w.Email, w.Phone, w.IDNumber, w.CompanyIDs, w.PasswordHash, w.CreatedBy).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
}

func (s *Store) GetWorker(ctx context.Context, workerID string) (*Worker, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+workerColumns+`
    FROM workers
    WHERE id = $1 AND deleted_at IS NULL
  `, workerID)
	worker, err := scanWorker(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return worker, err
}

func (s *Store) GetWorkerByEmail(ctx context.Context, email string) (*Worker, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+workerColumns+`
    FROM workers
    WHERE email = $1 AND deleted_at IS NULL
  `, email)
	worker, err := scanWorker(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return worker, err
}

func (s *Store) ListWorkers(ctx context.Context) ([]Worker, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+workerColumns+`
    FROM workers
    WHERE deleted_at IS NULL
    ORDER BY last_name, first_name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workers []Worker
	for rows.Next() {
		worker, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		workers = append(workers, *worker)
	}
	return workers, rows.Err()
}

func (s *Store) UpdateWorker(ctx context.Context, w *Worker) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE workers
    SET first_name = $1, last_name = $2, email = $3, phone = $4, id_number = $5, company_ids = $6, updated_at = now()
    WHERE id = $7 AND deleted_at IS NULL
  `, w.FirstName, w.LastName, w.Email, w.Phone, w.IDNumber, w.CompanyIDs, w.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkerNotFound
	}
	return nil
}

func (s *Store) UpdateWorkerPassword(ctx context.Context, workerID, hash string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE workers
    SET password_hash = $1, updated_at = now()
    WHERE id = $2 AND deleted_at IS NULL
  `, hash, workerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkerNotFound
	}
	return nil
}

func (s *Store) SoftDeleteWorker(ctx context.Context, workerID, deletedBy string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE workers
    SET deleted_at = now(), deleted_by = $1
    WHERE id = $2 AND deleted_at IS NULL
  `, deletedBy, workerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkerNotFound
	}
	return nil
}

// WorkerFieldTaken checks live rows only: a soft-deleted worker releases its
// email and id number.
func (s *Store) WorkerFieldTaken(ctx context.Context, field, value, excludeWorkerID string) (bool, error) {
	query := "SELECT COUNT(1) FROM workers WHERE email = $1 AND deleted_at IS NULL AND id::text <> $2"
	if field == "id_number" {
		query = "SELECT COUNT(1) FROM workers WHERE id_number = $1 AND deleted_at IS NULL AND id::text <> $2"
	}
	var count int
	if err := s.DB.QueryRow(ctx, query, value, excludeWorkerID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) CompanyNames(ctx context.Context, companyIDs []string) ([]string, error) {
	if len(companyIDs) == 0 {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT name
    FROM companies
    WHERE id = ANY($1)
    ORDER BY name
  `, companyIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (*Company, error) {
	var c Company
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt, &c.DeletedBy); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanWorker(row rowScanner) (*Worker, error) {
	var w Worker
	if err := row.Scan(
		&w.ID, &w.FirstName, &w.LastName, &w.Email, &w.Phone, &w.IDNumber,
		&w.CompanyIDs, &w.PasswordHash, &w.CreatedBy,
		&w.CreatedAt, &w.UpdatedAt, &w.DeletedAt, &w.DeletedBy,
	); err != nil {
		return nil, err
	}
	return &w, nil
}
