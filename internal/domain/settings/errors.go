package settings

import "errors"

var (
	ErrInvalidFrequency   = errors.New("settings: invalid backup frequency")
	ErrInvalidHour        = errors.New("settings: backup hour must be between 0 and 23")
	ErrInvalidDayOfWeek   = errors.New("settings: day of week must be between 0 and 6")
	ErrInvalidDayOfMonth  = errors.New("settings: day of month must be between 1 and 28")
	ErrInvalidRetention   = errors.New("settings: retention must be between 1 and 3650 days")
	ErrInvalidStorageType = errors.New("settings: invalid storage type")
	ErrStorageIncomplete  = errors.New("settings: selected storage backend is not configured")
)
