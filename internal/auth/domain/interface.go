package domain

//go:generate mockgen -destination=../../mocks/mock_domain.go -package=mocks github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/domain AccountRepository,TenantDirectory,AuditStore

import "context"

// AccountRepository is the account store. GetByEmail and GetByID return
// (nil, nil) when no account matches. UpdateLockFields is an atomic
// conditional update: it fails with ErrVersionConflict unless the stored
// version equals expectedVersion, and returns the new version.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string, withSecret bool) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, account *Account) error
	UpdateLockFields(ctx context.Context, id string, expectedVersion int64, update LockUpdate) (int64, error)
}

// TenantDirectory resolves a school code. It returns (nil, nil) when the code is unknown.
type TenantDirectory interface {
	ResolveTenant(ctx context.Context, code string) (*Tenant, error)
}

type AuditStore interface {
	Append(ctx context.Context, event AuditEvent) error
}
