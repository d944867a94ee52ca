package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get reads the singleton settings row. The row is guaranteed to exist by
// the seed step at startup.
func (s *Store) Get(ctx context.Context) (*Settings, error) {
	const query = `
		SELECT contact_email, webapp_url, backup_config, updated_at
		FROM settings
		WHERE id = 1`

	var (
		out Settings
		raw []byte
	)
	err := s.pool.QueryRow(ctx, query).Scan(&out.ContactEmail, &out.WebappURL, &raw, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if err := json.Unmarshal(raw, &out.Backup); err != nil {
		return nil, fmt.Errorf("decode backup config: %w", err)
	}
	return &out, nil
}

func (s *Store) Save(ctx context.Context, in *Settings) error {
	raw, err := json.Marshal(in.Backup)
	if err != nil {
		return fmt.Errorf("encode backup config: %w", err)
	}

	const query = `
		UPDATE settings
		SET contact_email = $1, webapp_url = $2, backup_config = $3, updated_at = NOW()
		WHERE id = 1`

	if _, err := s.pool.Exec(ctx, query, in.ContactEmail, in.WebappURL, raw); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
