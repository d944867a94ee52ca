package directory

import (
	"context"

	"jornada/internal/domain/auth"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) CreateCompany(ctx context.Context, name string) (*Company, error) {
	return s.store.CreateCompany(ctx, name)
}

func (s *Service) ListCompanies(ctx context.Context) ([]Company, error) {
	return s.store.ListCompanies(ctx)
}

// CompanyByID returns a live company, or nil when absent or soft-deleted.
func (s *Service) CompanyByID(ctx context.Context, companyID string) (*Company, error) {
	return s.store.GetCompany(ctx, companyID)
}

func (s *Service) UpdateCompany(ctx context.Context, companyID, name string) (*Company, error) {
	return s.store.UpdateCompany(ctx, companyID, name)
}

func (s *Service) DeleteCompany(ctx context.Context, companyID, deletedBy string) error {
	return s.store.SoftDeleteCompany(ctx, companyID, deletedBy)
}

type NewWorker struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	IDNumber   string
	Password   string
	CompanyIDs []string
	CreatedBy  string
}

func (s *Service) CreateWorker(ctx context.Context, input NewWorker) (*Worker, error) {
	if err := s.validateCompanies(ctx, input.CompanyIDs); err != nil {
		return nil, err
	}
	if err := s.checkUniqueness(ctx, input.Email, input.IDNumber, ""); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	worker := &Worker{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Phone:        input.Phone,
		IDNumber:     input.IDNumber,
		CompanyIDs:   input.CompanyIDs,
		PasswordHash: hash,
		CreatedBy:    input.CreatedBy,
	}
	if err := s.store.CreateWorker(ctx, worker); err != nil {
		return nil, err
	}
	return worker, nil
}

func (s *Service) ListWorkers(ctx context.Context) ([]Worker, error) {
	return s.store.ListWorkers(ctx)
}

// WorkerByID returns a live worker, or nil when absent or soft-deleted.
func (s *Service) WorkerByID(ctx context.Context, workerID string) (*Worker, error) {
	return s.store.GetWorker(ctx, workerID)
}

func (s *Service) WorkerByEmail(ctx context.Context, email string) (*Worker, error) {
	return s.store.GetWorkerByEmail(ctx, email)
}

type WorkerUpdate struct {
	FirstName  *string
	LastName   *string
	Email      *string
	Phone      *string
	IDNumber   *string
	CompanyIDs []string
}

func (s *Service) UpdateWorker(ctx context.Context, workerID string, update WorkerUpdate) (*Worker, error) {
	worker, err := s.store.GetWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, ErrWorkerNotFound
	}

	if update.FirstName != nil {
		worker.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		worker.LastName = *update.LastName
	}
	if update.Email != nil {
		worker.Email = *update.Email
	}
	if update.Phone != nil {
		worker.Phone = *update.Phone
	}
	if update.IDNumber != nil {
		worker.IDNumber = *update.IDNumber
	}
	if update.CompanyIDs != nil {
		if err := s.validateCompanies(ctx, update.CompanyIDs); err != nil {
			return nil, err
		}
		worker.CompanyIDs = update.CompanyIDs
	}

	if err := s.checkUniqueness(ctx, worker.Email, worker.IDNumber, worker.ID); err != nil {
		return nil, err
	}
	if err := s.store.UpdateWorker(ctx, worker); err != nil {
		return nil, err
	}
	return worker, nil
}

func (s *Service) DeleteWorker(ctx context.Context, workerID, deletedBy string) error {
	return s.store.SoftDeleteWorker(ctx, workerID, deletedBy)
}

func (s *Service) ChangeWorkerPassword(ctx context.Context, workerID, oldPassword, newPassword string) error {
	worker, err := s.store.GetWorker(ctx, workerID)
	if err != nil {
		return err
	}
	if worker == nil {
		return ErrWorkerNotFound
	}
	if err := auth.CheckPassword(worker.PasswordHash, oldPassword); err != nil {
		return auth.ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.store.UpdateWorkerPassword(ctx, workerID, hash)
}

func (s *Service) CompanyNames(ctx context.Context, companyIDs []string) ([]string, error) {
	return s.store.CompanyNames(ctx, companyIDs)
}

// validateCompanies requires a non-empty set of live companies.
func (s *Service) validateCompanies(ctx context.Context, companyIDs []string) error {
	if len(companyIDs) == 0 {
		return ErrNoCompanies
	}
	for _, id := range companyIDs {
		company, err := s.store.GetCompany(ctx, id)
		if err != nil {
			return err
		}
		if company == nil {
			return ErrCompanyNotFound
		}
	}
	return nil
}

func (s *Service) checkUniqueness(ctx context.Context, email, idNumber, excludeID string) error {
	taken, err := s.store.WorkerFieldTaken(ctx, "email", email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}
	taken, err = s.store.WorkerFieldTaken(ctx, "id_number", idNumber, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return ErrIDNumberTaken
	}
	return nil
}
