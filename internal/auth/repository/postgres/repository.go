package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/domain"
	autherror "github.com/harshsingh-chauhan/Gyan-setu-backend/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

//go:embed schema.sql
var schema string

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the tables if they do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("%w: apply schema: %v", autherror.ErrStoreUnavailable, err)
	}
	return nil
}

const accountColumns = `id, email, password_hash, role, first_name, last_name, language, tenant_id,
		failed_attempts, locked_until, last_login_at, refresh_token, version, created_at, updated_at`

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string, withSecret bool) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE email = $1
		LIMIT 1;
	`
	account, err := scanAccount(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get account by email: %v", autherror.ErrStoreUnavailable, err)
	}
	if !withSecret {
		account.PasswordHash = ""
		account.RefreshToken = ""
	}
	return account, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1;
	`
	account, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get account by id: %v", autherror.ErrStoreUnavailable, err)
	}
	return account, nil
}

func (r *PostgresRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (id, email, password_hash, role, first_name, last_name, language, tenant_id,
			failed_attempts, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, account.ID, account.Email, account.PasswordHash, string(account.Role),
		account.Profile.FirstName, account.Profile.LastName, string(account.Profile.Language), account.TenantID,
		account.FailedAttempts, account.Version, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return autherror.ErrDuplicateIdentity
		}
		return fmt.Errorf("%w: create account: %v", autherror.ErrStoreUnavailable, err)
	}
	return nil
}

// UpdateLockFields only touches the row when its version still matches, so a
// concurrent writer always sees ErrVersionConflict instead of a lost update.
func (r *PostgresRepository) UpdateLockFields(ctx context.Context, id string, expectedVersion int64, update domain.LockUpdate) (int64, error) {
	query := `
		UPDATE accounts
		SET failed_attempts = $3,
			locked_until = $4,
			last_login_at = COALESCE($5, last_login_at),
			refresh_token = COALESCE($6, refresh_token),
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version;
	`
	var version int64
	err := r.db.QueryRow(ctx, query, id, expectedVersion,
		update.FailedAttempts, update.LockedUntil, update.LastLoginAt, update.RefreshToken).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, autherror.ErrVersionConflict
		}
		return 0, fmt.Errorf("%w: update lock fields: %v", autherror.ErrStoreUnavailable, err)
	}
	return version, nil
}

func (r *PostgresRepository) ResolveTenant(ctx context.Context, code string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.QueryRow(ctx, `SELECT id, code, name FROM tenants WHERE code = $1`, code).
		Scan(&tenant.ID, &tenant.Code, &tenant.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: resolve tenant: %v", autherror.ErrStoreUnavailable, err)
	}
	return &tenant, nil
}

func (r *PostgresRepository) Append(ctx context.Context, event domain.AuditEvent) error {
	payload, err := json.Marshal(event.Context)
	if err != nil {
		return fmt.Errorf("encode audit context: %w", err)
	}
	if event.Context == nil {
		payload = []byte("{}")
	}

	var actorID *string
	if event.ActorID != "" {
		actorID = &event.ActorID
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO audit_events (id, kind, actor_id, occurred_at, context)
		VALUES ($1, $2, $3, $4, $5)
	`, event.ID, string(event.Kind), actorID, event.OccurredAt, payload)
	if err != nil {
		return fmt.Errorf("%w: append audit event: %v", autherror.ErrStoreUnavailable, err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account  domain.Account
		role     string
		language string
		locked   *time.Time
		lastSeen *time.Time
	)
	err := row.Scan(
		&account.ID, &account.Email, &account.PasswordHash, &role,
		&account.Profile.FirstName, &account.Profile.LastName, &language, &account.TenantID,
		&account.FailedAttempts, &locked, &lastSeen, &account.RefreshToken,
		&account.Version, &account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	account.Role = domain.Role(role)
	account.Profile.Language = domain.Language(language)
	account.LockedUntil = locked
	account.LastLoginAt = lastSeen
	return &account, nil
}
