package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	SubjectAPIUser = "api_user"
	SubjectWorker  = "worker"
)

type APIUser struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	PasswordHash string     `json:"-"`
	MFAEnabled   bool       `json:"mfaEnabled"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*APIUser, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT id, email, role, password_hash, mfa_enabled, created_at, last_login_at
    FROM api_users
    WHERE email = $1
  `, email)

	var user APIUser
	err := row.Scan(&user.ID, &user.Email, &user.Role, &user.PasswordHash, &user.MFAEnabled, &user.CreatedAt, &user.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) FindUserByID(ctx context.Context, userID string) (*APIUser, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT id, email, role, password_hash, mfa_enabled, created_at, last_login_at
    FROM api_users
    WHERE id = $1
  `, userID)

	var user APIUser
	err := row.Scan(&user.ID, &user.Email, &user.Role, &user.PasswordHash, &user.MFAEnabled, &user.CreatedAt, &user.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash, role string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO api_users (email, password_hash, role)
    VALUES ($1, $2, $3)
    RETURNING id
  `, email, passwordHash, role).Scan(&id)
	return id, err
}

func (s *Store) ListUsers(ctx context.Context) ([]APIUser, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, email, role, password_hash, mfa_enabled, created_at, last_login_at
    FROM api_users
    ORDER BY created_at
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []APIUser
	for rows.Next() {
		var user APIUser
		if err := rows.Scan(&user.ID, &user.Email, &user.Role, &user.PasswordHash, &user.MFAEnabled, &user.CreatedAt, &user.LastLoginAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE api_users SET last_login_at = now() WHERE id = $1", userID)
	return err
}

func (s *Store) UpdateUserPassword(ctx context.Context, userID, hash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE api_users SET password_hash = $1 WHERE id = $2", hash, userID)
	return err
}

func (s *Store) UpdateWorkerPassword(ctx context.Context, workerID, hash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE workers SET password_hash = $1, updated_at = now() WHERE id = $2 AND deleted_at IS NULL", hash, workerID)
	return err
}

func (s *Store) SetMFASecret(ctx context.Context, userID string, secretEnc []byte) error {
	_, err := s.DB.Exec(ctx, "UPDATE api_users SET mfa_secret_enc = $1 WHERE id = $2", secretEnc, userID)
	return err
}

func (s *Store) MFASecret(ctx context.Context, userID string) ([]byte, error) {
	var secret []byte
	err := s.DB.QueryRow(ctx, "SELECT mfa_secret_enc FROM api_users WHERE id = $1", userID).Scan(&secret)
	return secret, err
}

func (s *Store) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := s.DB.Exec(ctx, "UPDATE api_users SET mfa_enabled = $1 WHERE id = $2", enabled, userID)
	return err
}

func (s *Store) CountRecentResets(ctx context.Context, subjectType, subjectID string, since time.Time) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM password_resets
    WHERE subject_type = $1 AND subject_id = $2 AND created_at > $3
  `, subjectType, subjectID, since).Scan(&count)
	return count, err
}

func (s *Store) CreatePasswordReset(ctx context.Context, subjectType, subjectID, tokenHash string, expires time.Time) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO password_resets (subject_type, subject_id, token_hash, expires_at)
    VALUES ($1, $2, $3, $4)
  `, subjectType, subjectID, tokenHash, expires)
	return err
}

// ResetSubject resolves an unused, unexpired reset token to its subject.
func (s *Store) ResetSubject(ctx context.Context, tokenHash string) (string, string, error) {
	var subjectType, subjectID string
	err := s.DB.QueryRow(ctx, `
    SELECT subject_type, subject_id
    FROM password_resets
    WHERE token_hash = $1 AND used_at IS NULL AND expires_at > now()
  `, tokenHash).Scan(&subjectType, &subjectID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", ErrResetTokenInvalid
	}
	if err != nil {
		return "", "", err
	}
	return subjectType, subjectID, nil
}

func (s *Store) MarkResetUsed(ctx context.Context, tokenHash string) error {
	_, err := s.DB.Exec(ctx, "UPDATE password_resets SET used_at = now() WHERE token_hash = $1", tokenHash)
	return err
}
