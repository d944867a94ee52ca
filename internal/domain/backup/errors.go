package backup

import "errors"

var (
	ErrNotFound           = errors.New("backup: not found")
	ErrAlreadyRunning     = errors.New("backup: another backup is already running")
	ErrNotReady           = errors.New("backup: artifact is not in a restorable state")
	ErrStorageUnavailable = errors.New("backup: storage backend not configured")
)
