package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-core/internal/auth/domain"
	"auth-core/internal/auth/lockout"
	autherror "auth-core/internal/errors"
)

func newTestRepository(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewPostgresRepository(mock, lockout.DefaultPolicy(), nil), mock
}

func TestPostgresRepository_GetByEmail(t *testing.T) {
	repo, mock := newTestRepository(t)
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "email", "password_hash", "role", "created_at", "updated_at"}).
			AddRow("u1", "a@x.com", "hash", domain.RoleUser, now, now)
		mock.ExpectQuery(`SELECT id, email, password_hash, role, created_at, updated_at`).
			WithArgs("a@x.com").
			WillReturnRows(rows)

		user, err := repo.GetByEmail(context.Background(), "a@x.com")

		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
		assert.Equal(t, "a@x.com", user.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, email, password_hash, role, created_at, updated_at`).
			WithArgs("missing@x.com").
			WillReturnError(pgx.ErrNoRows)

		user, err := repo.GetByEmail(context.Background(), "missing@x.com")

		require.NoError(t, err)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, email, password_hash, role, created_at, updated_at`).
			WithArgs("a@x.com").
			WillReturnError(errors.New("connection refused"))

		user, err := repo.GetByEmail(context.Background(), "a@x.com")

		assert.Error(t, err)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepository_Create(t *testing.T) {
	repo, mock := newTestRepository(t)
	now := time.Now()

	user := &domain.User{
		ID:           "u1",
		Email:        "a@x.com",
		PasswordHash: "hash",
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(user.ID, user.Email, user.PasswordHash, user.Role, user.CreatedAt, user.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), user))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_StoreRefreshToken(t *testing.T) {
	repo, mock := newTestRepository(t)
	now := time.Now()

	token := &domain.RefreshToken{
		ID:         "t1",
		OwnerEmail: "a@x.com",
		TokenHash:  "hash-1",
		ExpiresAt:  now.Add(time.Hour),
		CreatedAt:  now,
	}

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(token.ID, token.OwnerEmail, token.TokenHash, token.ExpiresAt, token.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.StoreRefreshToken(context.Background(), token))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_RotateRefreshToken(t *testing.T) {
	repo, mock := newTestRepository(t)
	expiresAt := time.Now().Add(time.Hour)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(`WITH old AS`).
			WithArgs("old-hash", pgxmock.AnyArg(), "new-hash", expiresAt).
			WillReturnRows(pgxmock.NewRows([]string{"owner_email"}).AddRow("a@x.com"))

		owner, err := repo.RotateRefreshToken(context.Background(), "old-hash", "new-hash", expiresAt)

		require.NoError(t, err)
		assert.Equal(t, "a@x.com", owner)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	// Unknown, already rotated and expired hashes all produce no row.
	t.Run("consumed or unknown token", func(t *testing.T) {
		mock.ExpectQuery(`WITH old AS`).
			WithArgs("stale-hash", pgxmock.AnyArg(), "new-hash", expiresAt).
			WillReturnError(pgx.ErrNoRows)

		owner, err := repo.RotateRefreshToken(context.Background(), "stale-hash", "new-hash", expiresAt)

		assert.True(t, errors.Is(err, autherror.ErrInvalidToken))
		assert.Empty(t, owner)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepository_RevokeRefreshToken(t *testing.T) {
	repo, mock := newTestRepository(t)

	// Revoking an unknown hash is a no-op, not an error.
	mock.ExpectExec(`UPDATE refresh_tokens`).
		WithArgs("unknown-hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.RevokeRefreshToken(context.Background(), "unknown-hash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetValidRefreshToken(t *testing.T) {
	repo, mock := newTestRepository(t)
	now := time.Now()

	t.Run("found", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "owner_email", "token_hash", "expires_at", "created_at", "revoked"}).
			AddRow("t1", "a@x.com", "hash-1", now.Add(time.Hour), now, false)
		mock.ExpectQuery(`SELECT id, owner_email, token_hash, expires_at, created_at, revoked`).
			WithArgs("hash-1").
			WillReturnRows(rows)

		token, err := repo.GetValidRefreshToken(context.Background(), "hash-1")

		require.NoError(t, err)
		assert.Equal(t, "a@x.com", token.OwnerEmail)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, owner_email, token_hash, expires_at, created_at, revoked`).
			WithArgs("hash-2").
			WillReturnError(pgx.ErrNoRows)

		token, err := repo.GetValidRefreshToken(context.Background(), "hash-2")

		require.NoError(t, err)
		assert.Nil(t, token)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepository_CleanupExpiredRefreshTokens(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectExec(`DELETE FROM refresh_tokens`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	removed, err := repo.CleanupExpiredRefreshTokens(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_RecordFailedLogin(t *testing.T) {
	repo, mock := newTestRepository(t)

	t.Run("below threshold", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO failed_logins`).
			WithArgs("a@x.com").
			WillReturnRows(pgxmock.NewRows([]string{"attempts", "locked_until"}).AddRow(2, nil))

		entry, err := repo.RecordFailedLogin(context.Background(), "a@x.com")

		require.NoError(t, err)
		assert.Equal(t, 2, entry.Attempts)
		assert.Nil(t, entry.LockedUntil)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("crossing the threshold sets a lock window", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO failed_logins`).
			WithArgs("a@x.com").
			WillReturnRows(pgxmock.NewRows([]string{"attempts", "locked_until"}).AddRow(5, nil))
		mock.ExpectExec(`UPDATE failed_logins`).
			WithArgs("a@x.com", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		entry, err := repo.RecordFailedLogin(context.Background(), "a@x.com")

		require.NoError(t, err)
		assert.Equal(t, 5, entry.Attempts)
		require.NotNil(t, entry.LockedUntil)
		assert.WithinDuration(t, time.Now().Add(time.Minute), *entry.LockedUntil, 5*time.Second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("increment refused while locked", func(t *testing.T) {
		until := time.Now().Add(10 * time.Minute)

		// The upsert returns no row, so the current state is read back as is.
		mock.ExpectQuery(`INSERT INTO failed_logins`).
			WithArgs("a@x.com").
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(`SELECT attempts, locked_until, updated_at`).
			WithArgs("a@x.com").
			WillReturnRows(pgxmock.NewRows([]string{"attempts", "locked_until", "updated_at"}).
				AddRow(5, &until, time.Now()))

		entry, err := repo.RecordFailedLogin(context.Background(), "a@x.com")

		require.NoError(t, err)
		assert.Equal(t, 5, entry.Attempts)
		require.NotNil(t, entry.LockedUntil)
		assert.Equal(t, until, *entry.LockedUntil)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepository_GetFailedLogin(t *testing.T) {
	repo, mock := newTestRepository(t)

	t.Run("no record", func(t *testing.T) {
		mock.ExpectQuery(`SELECT attempts, locked_until, updated_at`).
			WithArgs("clean@x.com").
			WillReturnError(pgx.ErrNoRows)

		entry, err := repo.GetFailedLogin(context.Background(), "clean@x.com")

		require.NoError(t, err)
		assert.Nil(t, entry)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepository_ResetFailedLogins(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectExec(`DELETE FROM failed_logins`).
		WithArgs("a@x.com").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, repo.ResetFailedLogins(context.Background(), "a@x.com"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
