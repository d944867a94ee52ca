package timerecord

import (
	"context"
	"time"

	"jornada/internal/domain/auth"
)

// Service is the time-record engine. It resolves whether a worker action is
// an entry or an exit, computes durations, and relies on the store's
// open-entry guarantee for correctness under concurrent submissions.
type Service struct {
	store      StoreAPI
	dir        Directory
	defaultLoc *time.Location
	now        func() time.Time
}

func NewService(store StoreAPI, dir Directory, defaultTimezone string) *Service {
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		loc = time.UTC
	}
	return &Service{
		store:      store,
		dir:        dir,
		defaultLoc: loc,
		now:        time.Now,
	}
}

// Submit processes a worker clock action.
//
// The worker's single most recent record across all companies decides the
// outcome: no record, or an exit, resolves to a new entry for the requested
// company; an open entry resolves to an exit, which must target the entry's
// company. Timestamps are captured in UTC at processing time; the local
// representation is display-only.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*TimeRecord, error) {
	worker, err := s.dir.WorkerByID(ctx, req.WorkerID)
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, ErrWorkerNotEligible
	}
	if err := auth.CheckPassword(worker.PasswordHash, req.Password); err != nil {
		return nil, ErrCredentialInvalid
	}
	if !worker.EligibleFor(req.CompanyID) {
		return nil, ErrWorkerNotEligible
	}

	company, err := s.dir.CompanyByID(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, ErrWorkerNotEligible
	}

	now := s.now().UTC()
	local := now.In(s.resolveLocation(req.Timezone))
	_, offsetSeconds := local.Zone()

	rec := &TimeRecord{
		WorkerID:         req.WorkerID,
		CompanyID:        req.CompanyID,
		CompanyName:      company.Name,
		RecordedAt:       now,
		LocalTime:        local.Format(time.RFC3339),
		UTCOffsetMinutes: offsetSeconds / 60,
	}

	latest, err := s.store.Latest(ctx, req.WorkerID)
	if err != nil {
		return nil, err
	}

	if latest == nil || latest.Type == TypeExit {
		rec.Type = TypeEntry
		if err := s.store.InsertEntry(ctx, rec); err != nil {
			return nil, err
		}
		return rec, nil
	}

	// The latest record is an open entry: this action is an exit, and it must
	// be for the same company.
	if latest.CompanyID != req.CompanyID {
		return nil, ErrMismatchedExitCompany
	}

	rec.Type = TypeExit
	duration := int64(now.Sub(latest.RecordedAt).Seconds())
	rec.DurationSeconds = &duration
	if err := s.store.InsertExit(ctx, latest.ID, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// LatestRecord is a read-only view of the worker's current clock state.
func (s *Service) LatestRecord(ctx context.Context, workerID string) (*TimeRecord, error) {
	return s.store.Latest(ctx, workerID)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]TimeRecord, int, error) {
	records, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (s *Service) resolveLocation(hint string) *time.Location {
	if hint == "" {
		return s.defaultLoc
	}
	loc, err := time.LoadLocation(hint)
	if err != nil {
		return s.defaultLoc
	}
	return loc
}
