package errors

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmailAlreadyInUse  = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrUserNotFound       = errors.New("user not found")
	ErrMissingSecret      = errors.New("signing secret is not configured")
)

// AccountLockedError reports a lockout that is still in effect. The HTTP layer
// derives a Retry-After hint from Until.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

// RetryAfter returns how long the caller should wait, never less than a second.
func (e *AccountLockedError) RetryAfter(now time.Time) time.Duration {
	d := e.Until.Sub(now)
	if d < time.Second {
		d = time.Second
	}
	return d
}
