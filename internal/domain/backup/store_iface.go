package backup

import (
	"context"
	"time"
)

type StoreAPI interface {
	Create(ctx context.Context, b *Backup) error
	MarkCompleted(ctx context.Context, id, storagePath string, sizeBytes int64, checksum string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id, errMsg string, completedAt time.Time) error
	Get(ctx context.Context, id string) (*Backup, error)
	List(ctx context.Context, filter ListFilter) ([]Backup, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	Delete(ctx context.Context, id string) error
	ListExpired(ctx context.Context, before time.Time) ([]Backup, error)
	LastCompleted(ctx context.Context, trigger Trigger) (*Backup, error)
}
