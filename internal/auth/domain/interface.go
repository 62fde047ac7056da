package domain

import (
	"context"
	"time"
)

// Store is the credential store consumed by the auth core. Implementations
// must provide per-key atomicity for RotateRefreshToken and RecordFailedLogin;
// the service layer never assumes in-process locking is enough.
type Store interface {
	// GetByEmail returns (nil, nil) when no user exists.
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) error

	StoreRefreshToken(ctx context.Context, token *RefreshToken) error
	// RotateRefreshToken atomically revokes the record matching oldHash and
	// inserts a new record with newHash for the same owner. It returns the
	// owner's email, or errors.ErrInvalidToken when oldHash matches nothing
	// valid. Under concurrent calls with the same oldHash exactly one wins.
	RotateRefreshToken(ctx context.Context, oldHash, newHash string, newExpiresAt time.Time) (string, error)
	// RevokeRefreshToken is idempotent; unknown hashes are not an error.
	RevokeRefreshToken(ctx context.Context, hash string) error
	// GetValidRefreshToken returns (nil, nil) when the hash matches nothing
	// that is unrevoked and unexpired.
	GetValidRefreshToken(ctx context.Context, hash string) (*RefreshToken, error)
	CleanupExpiredRefreshTokens(ctx context.Context) (int64, error)

	// RecordFailedLogin increments the failure counter for identity and
	// applies the lockout policy, unless a lock is already active, in which
	// case the existing state is returned unchanged.
	RecordFailedLogin(ctx context.Context, identity string) (*FailedLogin, error)
	// GetFailedLogin returns (nil, nil) when no entry exists.
	GetFailedLogin(ctx context.Context, identity string) (*FailedLogin, error)
	ResetFailedLogins(ctx context.Context, identity string) error
}
