package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"jornada/internal/domain/auth"
	"jornada/internal/platform/config"
)

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.SeedAdminEmail != "" {
		if err := ensureAPIUser(ctx, pool, cfg.SeedAdminEmail, cfg.SeedAdminPassword, auth.RoleAdmin); err != nil {
			return err
		}
	}
	if cfg.SeedTrackerEmail != "" {
		if err := ensureAPIUser(ctx, pool, cfg.SeedTrackerEmail, cfg.SeedTrackerPassword, auth.RoleTracker); err != nil {
			return err
		}
	}
	return ensureSettings(ctx, pool, cfg)
}

func ensureAPIUser(ctx context.Context, pool *pgxpool.Pool, email, password, role string) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM api_users WHERE email = $1", email).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO api_users (email, password_hash, role)
    VALUES ($1, $2, $3)
  `, email, hash, role)
	return err
}

// ensureSettings creates the singleton settings row with defaults when absent.
func ensureSettings(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	_, err := pool.Exec(ctx, `
    INSERT INTO settings (id, contact_email, webapp_url, backup_config)
    VALUES (1, $1, $2, '{"enabled": false, "frequency": "daily", "hour_utc": 0, "retention_days": 730, "storage_type": "local"}'::jsonb)
    ON CONFLICT (id) DO NOTHING
  `, cfg.EmailFrom, cfg.WebappURL)
	return err
}
