package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken is the stored form of a refresh token. Only the sha256 hash of
// the plaintext is persisted; the plaintext lives solely on the client.
type RefreshToken struct {
	ID         string
	OwnerEmail string
	TokenHash  string
	ExpiresAt  time.Time
	CreatedAt  time.Time
	Revoked    bool
}

// Valid reports whether the record can still be exchanged at the given time.
func (t *RefreshToken) Valid(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// FailedLogin tracks consecutive authentication failures for one identity.
type FailedLogin struct {
	Identity    string
	Attempts    int
	LockedUntil *time.Time
	UpdatedAt   time.Time
}

// Locked reports whether the lockout window is still open.
func (f *FailedLogin) Locked(now time.Time) bool {
	return f != nil && f.LockedUntil != nil && now.Before(*f.LockedUntil)
}
