package incident

import "errors"

var (
	ErrNotFound          = errors.New("incident not found")
	ErrInvalidTransition = errors.New("incident status can only move forward")
	ErrEmptyDescription  = errors.New("incident description is required")
)
