package timerecord

import (
	"context"

	"jornada/internal/domain/directory"
)

type StoreAPI interface {
	// Latest returns the worker's most recent record across all companies,
	// or nil when the worker has none.
	Latest(ctx context.Context, workerID string) (*TimeRecord, error)
	// InsertEntry persists an open entry. It returns ErrConcurrentEntry when
	// the worker already holds an open entry anywhere.
	InsertEntry(ctx context.Context, rec *TimeRecord) error
	// InsertExit atomically closes the given open entry and persists the exit.
	// It returns ErrConcurrentEntry when the entry was already closed by a
	// concurrent request.
	InsertExit(ctx context.Context, entryID string, rec *TimeRecord) error
	List(ctx context.Context, filter ListFilter) ([]TimeRecord, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// Directory is the slice of the company/worker directory the engine consumes.
// Both lookups exclude soft-deleted rows.
type Directory interface {
	WorkerByID(ctx context.Context, workerID string) (*directory.Worker, error)
	CompanyByID(ctx context.Context, companyID string) (*directory.Company, error)
}
