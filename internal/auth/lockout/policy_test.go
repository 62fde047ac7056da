package lockout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_LockDuration(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		attempts int
		want     time.Duration
	}{
		{name: "no failures", attempts: 0, want: 0},
		{name: "below threshold", attempts: 4, want: 0},
		{name: "at threshold", attempts: 5, want: 1 * time.Minute},
		{name: "sixth failure", attempts: 6, want: 2 * time.Minute},
		{name: "seventh failure", attempts: 7, want: 4 * time.Minute},
		{name: "capped", attempts: 12, want: 60 * time.Minute},
		{name: "far past cap", attempts: 100, want: 60 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.LockDuration(tt.attempts))
		})
	}
}

func TestPolicy_LockedUntil(t *testing.T) {
	p := DefaultPolicy()
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

	assert.Nil(t, p.LockedUntil(4, now))

	until := p.LockedUntil(6, now)
	assert.NotNil(t, until)
	assert.Equal(t, now.Add(2*time.Minute), *until)
}

func TestPolicy_CustomCap(t *testing.T) {
	p := Policy{Threshold: 3, MaxLock: 5 * time.Minute}

	assert.Equal(t, time.Duration(0), p.LockDuration(2))
	assert.Equal(t, 1*time.Minute, p.LockDuration(3))
	assert.Equal(t, 4*time.Minute, p.LockDuration(5))
	assert.Equal(t, 5*time.Minute, p.LockDuration(6))
}
