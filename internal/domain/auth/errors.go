package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrResetRateLimited   = errors.New("too many reset requests, retry in an hour")
	ErrResetTokenInvalid  = errors.New("reset token invalid or expired")
	ErrUserNotFound       = errors.New("user not found")
)
