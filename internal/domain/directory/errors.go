package directory

import "errors"

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrWorkerNotFound  = errors.New("worker not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrIDNumberTaken   = errors.New("id number already registered")
	ErrNoCompanies     = errors.New("worker must belong to at least one company")
)
