package service

import (
	"time"

	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/domain"
)

// LockGuard binds the lockout policy to a clock. It holds no per-account
// state; every decision is made over the snapshot it is handed.
type LockGuard struct {
	policy domain.LockPolicy
	now    func() time.Time
}

func NewLockGuard(threshold int, duration time.Duration, now func() time.Time) *LockGuard {
	policy := domain.DefaultLockPolicy()
	if threshold > 0 {
		policy.Threshold = threshold
	}
	if duration > 0 {
		policy.Duration = duration
	}
	if now == nil {
		now = time.Now
	}
	return &LockGuard{policy: policy, now: now}
}

func (g *LockGuard) Policy() domain.LockPolicy {
	return g.policy
}

func (g *LockGuard) Now() time.Time {
	return g.now()
}

func (g *LockGuard) CheckAdmissible(account domain.Account) domain.Admission {
	return g.policy.CheckAdmissible(account, g.now())
}

func (g *LockGuard) RecordFailure(account domain.Account) (domain.Account, []domain.EventKind) {
	return g.policy.RecordFailure(account, g.now())
}

func (g *LockGuard) RecordSuccess(account domain.Account) domain.Account {
	return g.policy.RecordSuccess(account, g.now())
}

func (g *LockGuard) Unlock(account domain.Account) domain.Account {
	return g.policy.Unlock(account)
}
