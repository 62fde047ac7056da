package service

//go:generate mockgen -destination=../../mocks/mock_store.go -package=mocks auth-core/internal/auth/domain Store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"auth-core/internal/auth/domain"
	"auth-core/internal/auth/dto"
	"auth-core/internal/auth/password"
	autherror "auth-core/internal/errors"
)

type AuthService struct {
	store    domain.Store
	rotation *RotationEngine
	hasher   *password.Hasher
	logger   *zap.Logger
}

func NewAuthService(store domain.Store, rotation *RotationEngine, hasher *password.Hasher, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		store:    store,
		rotation: rotation,
		hasher:   hasher,
		logger:   logger,
	}
}

// Register creates a user. It does not log the user in; callers decide
// whether to issue tokens afterwards.
func (s *AuthService) Register(ctx context.Context, input dto.RegisterInput) (*dto.UserOutput, error) {
	existing, err := s.store.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, autherror.ErrEmailAlreadyInUse
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("email", user.Email), zap.String("role", user.Role))

	return &dto.UserOutput{Email: user.Email, Role: user.Role}, nil
}

// Login authenticates by email and password. Unknown-user and wrong-password
// both record a failure and return ErrInvalidCredentials, with a dummy hash
// comparison on the unknown-user path so the two are not distinguishable by
// timing or error kind.
func (s *AuthService) Login(ctx context.Context, input dto.LoginInput) (*dto.LoginResponse, error) {
	entry, err := s.store.GetFailedLogin(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if entry.Locked(time.Now()) {
		return nil, &autherror.AccountLockedError{Until: *entry.LockedUntil}
	}

	user, err := s.store.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.hasher.DummyVerify(input.Password)
		return nil, s.recordFailure(ctx, input.Email)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, s.recordFailure(ctx, input.Email)
	}

	if err := s.store.ResetFailedLogins(ctx, input.Email); err != nil {
		return nil, err
	}

	pair, err := s.rotation.IssuePair(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login succeeded", zap.String("email", user.Email))

	return &dto.LoginResponse{
		User:         dto.UserOutput{Email: user.Email, Role: user.Role},
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, identity string) error {
	entry, err := s.store.RecordFailedLogin(ctx, identity)
	if err != nil {
		return err
	}
	if entry != nil {
		s.logger.Warn("login failed",
			zap.String("identity", identity),
			zap.Int("attempts", entry.Attempts))
	}
	return autherror.ErrInvalidCredentials
}

// Refresh exchanges a refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.TokenResponse, error) {
	return s.rotation.Rotate(ctx, input.RefreshToken)
}

// Logout revokes the presented refresh token. It never returns an error: the
// client-observable contract is "you are now logged out".
func (s *AuthService) Logout(ctx context.Context, input dto.LogoutInput) {
	if input.RefreshToken == "" {
		return
	}
	s.rotation.Revoke(ctx, input.RefreshToken)
}

// Me resolves the current user from verified access-token claims. The account
// may have been deleted after the token was issued.
func (s *AuthService) Me(ctx context.Context, claims *JWTCustomClaims) (*dto.UserOutput, error) {
	user, err := s.store.GetByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, autherror.ErrUserNotFound
	}
	return &dto.UserOutput{Email: user.Email, Role: user.Role}, nil
}
