package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"time"
)

const (
	resetTokenTTL    = time.Hour
	resetRateLimit   = 3
	resetRateWindow  = time.Hour
	resetTokenLength = 32
)

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

// Login verifies an API user credential and returns the user for token issuance.
func (s *Service) Login(ctx context.Context, email, password string) (*APIUser, error) {
	user, err := s.Store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// RequestReset issues a single-use reset token for the subject, enforcing the
// per-subject rolling-hour rate limit. Returns the plaintext token; only its
// hash is stored.
func (s *Service) RequestReset(ctx context.Context, subjectType, subjectID string) (string, error) {
	since := time.Now().Add(-resetRateWindow)
	count, err := s.Store.CountRecentResets(ctx, subjectType, subjectID, since)
	if err != nil {
		return "", err
	}
	if count >= resetRateLimit {
		return "", ErrResetRateLimited
	}

	token, err := newResetToken()
	if err != nil {
		return "", err
	}
	expires := time.Now().Add(resetTokenTTL)
	if err := s.Store.CreatePasswordReset(ctx, subjectType, subjectID, HashResetToken(token), expires); err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeReset validates a reset token, stores the new password hash for its
// subject, and invalidates the token.
func (s *Service) ConsumeReset(ctx context.Context, token, newPasswordHash string) error {
	tokenHash := HashResetToken(token)
	subjectType, subjectID, err := s.Store.ResetSubject(ctx, tokenHash)
	if err != nil {
		return err
	}

	switch subjectType {
	case SubjectWorker:
		err = s.Store.UpdateWorkerPassword(ctx, subjectID, newPasswordHash)
	default:
		err = s.Store.UpdateUserPassword(ctx, subjectID, newPasswordHash)
	}
	if err != nil {
		return err
	}
	return s.Store.MarkResetUsed(ctx, tokenHash)
}

func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newResetToken() (string, error) {
	raw := make([]byte, resetTokenLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
