package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"auth-core/internal/auth/domain"
	"auth-core/internal/auth/lockout"
	autherror "auth-core/internal/errors"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	db     DB
	policy lockout.Policy
	logger *zap.Logger
}

func NewPostgresRepository(db DB, policy lockout.Policy, logger *zap.Logger) *PostgresRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresRepository{db: db, policy: policy, logger: logger}
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE email = $1
		LIMIT 1`

	var user domain.User
	err := r.db.QueryRow(ctx, query, email).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Email, user.PasswordHash, user.Role, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *PostgresRepository) StoreRefreshToken(ctx context.Context, token *domain.RefreshToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, owner_email, token_hash, expires_at, created_at, revoked)
		VALUES ($1, $2, $3, $4, $5, FALSE)
	`, token.ID, token.OwnerEmail, token.TokenHash, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

// RotateRefreshToken revokes the old record and inserts its replacement in
// one statement. The conditional UPDATE makes the swap at-most-once per hash:
// a concurrent rotation of the same token finds revoked = TRUE and gets no
// row back.
func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, oldHash, newHash string, newExpiresAt time.Time) (string, error) {
	query := `
		WITH old AS (
			UPDATE refresh_tokens
			SET revoked = TRUE
			WHERE token_hash = $1 AND revoked = FALSE AND expires_at > NOW()
			RETURNING owner_email
		)
		INSERT INTO refresh_tokens (id, owner_email, token_hash, expires_at, created_at, revoked)
		SELECT $2, owner_email, $3, $4, NOW(), FALSE FROM old
		RETURNING owner_email`

	var ownerEmail string
	err := r.db.QueryRow(ctx, query, oldHash, newRecordID(), newHash, newExpiresAt).Scan(&ownerEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", autherror.ErrInvalidToken
		}
		return "", fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return ownerEmail, nil
}

func (r *PostgresRepository) RevokeRefreshToken(ctx context.Context, hash string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE
		WHERE token_hash = $1
	`, hash)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetValidRefreshToken(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, owner_email, token_hash, expires_at, created_at, revoked
		FROM refresh_tokens
		WHERE token_hash = $1 AND revoked = FALSE AND expires_at > NOW()
		LIMIT 1`

	var token domain.RefreshToken
	err := r.db.QueryRow(ctx, query, hash).
		Scan(&token.ID, &token.OwnerEmail, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt, &token.Revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return &token, nil
}

func (r *PostgresRepository) CleanupExpiredRefreshTokens(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to clean expired refresh tokens: %w", err)
	}

	return tag.RowsAffected(), nil
}

// RecordFailedLogin increments the failure counter unless a lock is active.
// The upsert's WHERE clause refuses the increment while locked, so attacker
// spam cannot extend a window; the lockout policy is applied to the
// post-increment count.
func (r *PostgresRepository) RecordFailedLogin(ctx context.Context, identity string) (*domain.FailedLogin, error) {
	upsert := `
		INSERT INTO failed_logins (identity, attempts, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (identity) DO UPDATE
		SET attempts = failed_logins.attempts + 1, updated_at = NOW()
		WHERE failed_logins.locked_until IS NULL OR failed_logins.locked_until <= NOW()
		RETURNING attempts, locked_until`

	entry := &domain.FailedLogin{Identity: identity}
	err := r.db.QueryRow(ctx, upsert, identity).Scan(&entry.Attempts, &entry.LockedUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Increment refused: the identity is locked. Return the state as is.
			return r.GetFailedLogin(ctx, identity)
		}
		return nil, fmt.Errorf("failed to record failed login: %w", err)
	}

	until := r.policy.LockedUntil(entry.Attempts, time.Now())
	if until == nil {
		return entry, nil
	}

	// A racing failure between these two statements can only shorten the
	// window by one increment, which the lockout model tolerates.
	_, err = r.db.Exec(ctx, `
		UPDATE failed_logins
		SET locked_until = $2
		WHERE identity = $1
	`, identity, *until)
	if err != nil {
		return nil, fmt.Errorf("failed to set lockout window: %w", err)
	}

	entry.LockedUntil = until
	r.logger.Warn("identity locked out",
		zap.String("identity", identity),
		zap.Int("attempts", entry.Attempts),
		zap.Time("locked_until", *until))

	return entry, nil
}

func (r *PostgresRepository) GetFailedLogin(ctx context.Context, identity string) (*domain.FailedLogin, error) {
	query := `
		SELECT attempts, locked_until, updated_at
		FROM failed_logins
		WHERE identity = $1`

	entry := &domain.FailedLogin{Identity: identity}
	err := r.db.QueryRow(ctx, query, identity).Scan(&entry.Attempts, &entry.LockedUntil, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get failed login entry: %w", err)
	}

	return entry, nil
}

func newRecordID() string {
	return uuid.NewString()
}

func (r *PostgresRepository) ResetFailedLogins(ctx context.Context, identity string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM failed_logins WHERE identity = $1`, identity)
	if err != nil {
		return fmt.Errorf("failed to reset failed logins: %w", err)
	}

	return nil
}
