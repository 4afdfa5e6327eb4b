package domain

import (
	"math"
	"time"
)

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 30 * time.Second
)

// LockPolicy holds the pure lockout state machine. None of its methods
// mutate the account they are given.
type LockPolicy struct {
	Threshold int
	Duration  time.Duration
}

func DefaultLockPolicy() LockPolicy {
	return LockPolicy{Threshold: DefaultLockoutThreshold, Duration: DefaultLockoutDuration}
}

// Admission is the outcome of an admissibility check.
type Admission struct {
	Locked            bool
	RetryAfterSeconds int
}

// IsLocked reports whether a is in the LOCKED state at now.
func IsLocked(a Account, now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

func (p LockPolicy) CheckAdmissible(a Account, now time.Time) Admission {
	if !IsLocked(a, now) {
		return Admission{}
	}
	return Admission{Locked: true, RetryAfterSeconds: RetryAfterSeconds(*a.LockedUntil, now)}
}

// RetryAfterSeconds is ceil((lockedUntil - now) / 1s).
func RetryAfterSeconds(lockedUntil, now time.Time) int {
	remaining := lockedUntil.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Seconds()))
}

// RecordFailure increments the failure counter. Reaching the threshold
// while unlocked starts a new lockout episode and emits EventLockout; the
// returned kinds are in the order they must be recorded after commit.
func (p LockPolicy) RecordFailure(a Account, now time.Time) (Account, []EventKind) {
	wasLocked := IsLocked(a, now)
	a.FailedAttempts++

	kinds := []EventKind{EventLoginFailure}
	if !wasLocked && p.Threshold > 0 && a.FailedAttempts >= p.Threshold {
		until := now.Add(p.Duration)
		a.LockedUntil = &until
		kinds = append(kinds, EventLockout)
	}
	return a, kinds
}

func (p LockPolicy) RecordSuccess(a Account, now time.Time) Account {
	a.FailedAttempts = 0
	a.LockedUntil = nil
	a.LastLoginAt = &now
	return a
}

// Unlock is the explicit operator reset.
func (p LockPolicy) Unlock(a Account) Account {
	a.FailedAttempts = 0
	a.LockedUntil = nil
	return a
}
