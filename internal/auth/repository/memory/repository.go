package memory

import (
	"context"
	"sync"
	"time"

	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/domain"
	autherror "github.com/harshsingh-chauhan/Gyan-setu-backend/internal/errors"
)

// Repository keeps accounts, schools and audit events in process memory.
// It backs the memory store backend and the service scenario tests.
type Repository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account // id -> account
	byEmail  map[string]string           // email -> id
	tenants  map[string]*domain.Tenant   // code -> tenant
	events   []domain.AuditEvent
	now      func() time.Time
}

func NewRepository() *Repository {
	return &Repository{
		accounts: make(map[string]*domain.Account),
		byEmail:  make(map[string]string),
		tenants:  make(map[string]*domain.Tenant),
		now:      time.Now,
	}
}

// AddTenant registers a school so that its code resolves.
func (r *Repository) AddTenant(tenant domain.Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[tenant.Code] = &tenant
}

func (r *Repository) ResolveTenant(ctx context.Context, code string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tenant, ok := r.tenants[code]
	if !ok {
		return nil, nil
	}
	out := *tenant
	return &out, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string, withSecret bool) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	out := *r.accounts[id]
	if !withSecret {
		out.PasswordHash = ""
		out.RefreshToken = ""
	}
	return &out, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	out := *account
	return &out, nil
}

func (r *Repository) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[account.Email]; exists {
		return autherror.ErrDuplicateIdentity
	}
	stored := *account
	if stored.Version == 0 {
		stored.Version = 1
	}
	r.accounts[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	return nil
}

func (r *Repository) UpdateLockFields(ctx context.Context, id string, expectedVersion int64, update domain.LockUpdate) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok || account.Version != expectedVersion {
		return 0, autherror.ErrVersionConflict
	}
	next := update.Apply(*account, expectedVersion+1)
	next.UpdatedAt = r.now().UTC()
	r.accounts[id] = &next
	return next.Version, nil
}

func (r *Repository) Append(ctx context.Context, event domain.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of every appended audit event in append order.
func (r *Repository) Events() []domain.AuditEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.AuditEvent, len(r.events))
	copy(out, r.events)
	return out
}
