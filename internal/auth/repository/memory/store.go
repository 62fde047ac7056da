// Package memory holds a mutex-guarded in-process Store. It backs development
// mode when no database is configured and the concurrency tests; the same
// per-key guarantees the postgres store gets from SQL come from a single lock
// here.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"auth-core/internal/auth/domain"
	"auth-core/internal/auth/lockout"
	autherror "auth-core/internal/errors"
)

type Store struct {
	mu           sync.Mutex
	policy       lockout.Policy
	users        map[string]*domain.User         // keyed by email
	tokens       map[string]*domain.RefreshToken // keyed by token hash
	failedLogins map[string]*domain.FailedLogin  // keyed by identity
}

func NewStore(policy lockout.Policy) *Store {
	return &Store{
		policy:       policy,
		users:        make(map[string]*domain.User),
		tokens:       make(map[string]*domain.RefreshToken),
		failedLogins: make(map[string]*domain.FailedLogin),
	}
}

func (s *Store) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[email]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (s *Store) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *user
	s.users[user.Email] = &copied
	return nil
}

func (s *Store) StoreRefreshToken(_ context.Context, token *domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *token
	s.tokens[token.TokenHash] = &copied
	return nil
}

func (s *Store) RotateRefreshToken(_ context.Context, oldHash, newHash string, newExpiresAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.tokens[oldHash]
	if !ok || !old.Valid(time.Now()) {
		return "", autherror.ErrInvalidToken
	}

	old.Revoked = true
	s.tokens[newHash] = &domain.RefreshToken{
		ID:         uuid.NewString(),
		OwnerEmail: old.OwnerEmail,
		TokenHash:  newHash,
		ExpiresAt:  newExpiresAt,
		CreatedAt:  time.Now(),
	}

	return old.OwnerEmail, nil
}

func (s *Store) RevokeRefreshToken(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token, ok := s.tokens[hash]; ok {
		token.Revoked = true
	}
	return nil
}

func (s *Store) GetValidRefreshToken(_ context.Context, hash string) (*domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[hash]
	if !ok || !token.Valid(time.Now()) {
		return nil, nil
	}
	copied := *token
	return &copied, nil
}

func (s *Store) CleanupExpiredRefreshTokens(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var removed int64
	for hash, token := range s.tokens {
		if now.After(token.ExpiresAt) {
			delete(s.tokens, hash)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) RecordFailedLogin(_ context.Context, identity string) (*domain.FailedLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	entry, ok := s.failedLogins[identity]
	if ok && entry.Locked(now) {
		copied := *entry
		return &copied, nil
	}
	if !ok {
		entry = &domain.FailedLogin{Identity: identity}
		s.failedLogins[identity] = entry
	}

	entry.Attempts++
	entry.UpdatedAt = now
	entry.LockedUntil = s.policy.LockedUntil(entry.Attempts, now)

	copied := *entry
	return &copied, nil
}

func (s *Store) GetFailedLogin(_ context.Context, identity string) (*domain.FailedLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.failedLogins[identity]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (s *Store) ResetFailedLogins(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.failedLogins, identity)
	return nil
}
