package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"auth-core/internal/auth/domain"
	"auth-core/internal/auth/dto"
	autherror "auth-core/internal/errors"
)

// RotationEngine drives the refresh-token state machine: a token is ACTIVE
// until it is rotated (revoked and replaced), revoked outright, or expires.
// Rotation consumes the presented token at most once; presenting a rotated
// token again is answered exactly like an unknown one.
type RotationEngine struct {
	store  domain.Store
	tokens TokenGenerator
	logger *zap.Logger
}

func NewRotationEngine(store domain.Store, tokens TokenGenerator, logger *zap.Logger) *RotationEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RotationEngine{store: store, tokens: tokens, logger: logger}
}

// IssuePair mints a fresh access/refresh pair for user and persists the
// refresh token's hash with a full TTL.
func (e *RotationEngine) IssuePair(ctx context.Context, user *domain.User) (*dto.TokenResponse, error) {
	accessToken, err := e.tokens.GenerateAccessToken(user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	refreshToken, err := e.tokens.NewRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := &domain.RefreshToken{
		ID:         uuid.NewString(),
		OwnerEmail: user.Email,
		TokenHash:  e.tokens.HashRefreshToken(refreshToken),
		ExpiresAt:  now.Add(e.tokens.GetRefreshTokenExpiry()),
		CreatedAt:  now,
	}
	if err := e.store.StoreRefreshToken(ctx, record); err != nil {
		return nil, err
	}

	return &dto.TokenResponse{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Rotate exchanges a valid refresh token for a new pair. The revoke-old plus
// insert-new step happens atomically in the store, so two concurrent calls
// with the same token produce exactly one success. Missing, revoked and
// expired tokens all collapse to ErrInvalidToken.
func (e *RotationEngine) Rotate(ctx context.Context, presented string) (*dto.TokenResponse, error) {
	newRefresh, err := e.tokens.NewRefreshToken()
	if err != nil {
		return nil, err
	}

	oldHash := e.tokens.HashRefreshToken(presented)
	newHash := e.tokens.HashRefreshToken(newRefresh)
	newExpiresAt := time.Now().Add(e.tokens.GetRefreshTokenExpiry())

	ownerEmail, err := e.store.RotateRefreshToken(ctx, oldHash, newHash, newExpiresAt)
	if err != nil {
		return nil, err
	}

	// The owner is re-read so the new access token carries the current role;
	// stateless tokens can outlive the account itself.
	user, err := e.store.GetByEmail(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}
	if user == nil {
		e.logger.Warn("refresh token rotated for a deleted account", zap.String("email", ownerEmail))
		return nil, autherror.ErrInvalidToken
	}

	accessToken, err := e.tokens.GenerateAccessToken(user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	return &dto.TokenResponse{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// Revoke invalidates the presented token if it exists. It never fails from
// the caller's perspective; logout must always succeed.
func (e *RotationEngine) Revoke(ctx context.Context, presented string) {
	hash := e.tokens.HashRefreshToken(presented)
	if err := e.store.RevokeRefreshToken(ctx, hash); err != nil {
		e.logger.Warn("failed to revoke refresh token", zap.Error(err))
	}
}
