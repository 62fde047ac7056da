// Package lockout computes failed-login lockout windows: exponential backoff
// per identity once a failure threshold is crossed.
package lockout

import "time"

const (
	DefaultThreshold = 5
	DefaultMaxLock   = 60 * time.Minute
)

// Policy is a pure value; stores apply it inside their atomic failure
// increment so the window is computed from the post-increment count.
type Policy struct {
	Threshold int
	MaxLock   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold, MaxLock: DefaultMaxLock}
}

// LockDuration returns how long an identity stays locked after the given
// number of consecutive failures, or 0 below the threshold. The window doubles
// with every failure past the threshold: 1m, 2m, 4m... capped at MaxLock.
func (p Policy) LockDuration(attempts int) time.Duration {
	if attempts < p.Threshold {
		return 0
	}

	exp := attempts - p.Threshold
	// 2^exp minutes, guarding the shift against overflow past the cap.
	if exp > 30 {
		return p.MaxLock
	}
	d := time.Duration(1<<uint(exp)) * time.Minute
	if d > p.MaxLock {
		return p.MaxLock
	}
	return d
}

// LockedUntil returns the end of the lockout window started at now, or nil
// when attempts is below the threshold.
func (p Policy) LockedUntil(attempts int, now time.Time) *time.Time {
	d := p.LockDuration(attempts)
	if d == 0 {
		return nil
	}
	until := now.Add(d)
	return &until
}
