package timerecord

import "errors"

var (
	ErrCredentialInvalid     = errors.New("worker credential invalid")
	ErrWorkerNotEligible     = errors.New("worker not eligible for company")
	ErrConcurrentEntry       = errors.New("worker already has an open entry")
	ErrMismatchedExitCompany = errors.New("open entry belongs to a different company")
)
