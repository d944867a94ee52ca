package incident

import (
	"context"
	"strings"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) Report(ctx context.Context, workerID, description string) (*Incident, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrEmptyDescription
	}
	return s.store.Create(ctx, workerID, strings.TrimSpace(description))
}

func (s *Service) Get(ctx context.Context, incidentID string) (*Incident, error) {
	return s.store.Get(ctx, incidentID)
}

func (s *Service) List(ctx context.Context, workerID string, status Status) ([]Incident, error) {
	return s.store.List(ctx, workerID, status)
}

// Transition moves an incident forward through its lifecycle. Admin-only at
// the API layer; the rule itself lives here.
func (s *Service) Transition(ctx context.Context, incidentID string, to Status) (*Incident, error) {
	current, err := s.store.Get(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}
	if !CanTransition(current.Status, to) {
		return nil, ErrInvalidTransition
	}
	return s.store.UpdateStatus(ctx, incidentID, to)
}
