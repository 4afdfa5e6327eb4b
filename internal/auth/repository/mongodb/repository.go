package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/domain"
	autherror "github.com/harshsingh-chauhan/Gyan-setu-backend/internal/errors"
	authconstant "github.com/harshsingh-chauhan/Gyan-setu-backend/pkg/constant"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	accountsCollection = "accounts"
	schoolsCollection  = "schools"
	auditCollection    = "audit_logs"
)

type accountDoc struct {
	ID             string     `bson:"_id"`
	Email          string     `bson:"email"`
	PasswordHash   string     `bson:"password_hash,omitempty"`
	Role           string     `bson:"role"`
	FirstName      string     `bson:"first_name"`
	LastName       string     `bson:"last_name"`
	Language       string     `bson:"language"`
	SchoolID       string     `bson:"school_id"`
	FailedAttempts int        `bson:"failed_attempts"`
	LockedUntil    *time.Time `bson:"locked_until"`
	LastLoginAt    *time.Time `bson:"last_login_at"`
	RefreshToken   string     `bson:"refresh_token"`
	Version        int64      `bson:"version"`
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
}

type schoolDoc struct {
	ID   string `bson:"_id"`
	Code string `bson:"school_code"`
	Name string `bson:"name"`
}

type auditDoc struct {
	ID        string            `bson:"_id"`
	Action    string            `bson:"action"`
	UserID    string            `bson:"user_id,omitempty"`
	Details   map[string]string `bson:"details,omitempty"`
	IP        string            `bson:"ip,omitempty"`
	UserAgent string            `bson:"user_agent,omitempty"`
	CreatedAt time.Time         `bson:"created_at"`
}

// Repository stores accounts, schools and audit logs in MongoDB. Lock
// fields are written with a filter on the version field, so every update
// is a single-document compare-and-set.
type Repository struct {
	accounts *mongo.Collection
	schools  *mongo.Collection
	audit    *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{
		accounts: db.Collection(accountsCollection),
		schools:  db.Collection(schoolsCollection),
		audit:    db.Collection(auditCollection),
	}
}

// EnsureIndexes creates the unique indexes identity and school lookups rely on.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("%w: create account index: %v", autherror.ErrStoreUnavailable, err)
	}
	if _, err := r.schools.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "school_code", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("%w: create school index: %v", autherror.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string, withSecret bool) (*domain.Account, error) {
	opts := options.FindOne()
	if !withSecret {
		opts.SetProjection(bson.M{"password_hash": 0, "refresh_token": 0})
	}
	return r.findAccount(ctx, bson.M{"email": email}, opts)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findAccount(ctx, bson.M{"_id": id}, options.FindOne())
}

func (r *Repository) findAccount(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*domain.Account, error) {
	var doc accountDoc
	if err := r.accounts.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find account: %v", autherror.ErrStoreUnavailable, err)
	}
	return doc.toDomain(), nil
}

func (r *Repository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.accounts.InsertOne(ctx, accountDoc{
		ID:             account.ID,
		Email:          account.Email,
		PasswordHash:   account.PasswordHash,
		Role:           string(account.Role),
		FirstName:      account.Profile.FirstName,
		LastName:       account.Profile.LastName,
		Language:       string(account.Profile.Language),
		SchoolID:       account.TenantID,
		FailedAttempts: account.FailedAttempts,
		Version:        account.Version,
		CreatedAt:      account.CreatedAt,
		UpdatedAt:      account.UpdatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return autherror.ErrDuplicateIdentity
		}
		return fmt.Errorf("%w: insert account: %v", autherror.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *Repository) UpdateLockFields(ctx context.Context, id string, expectedVersion int64, update domain.LockUpdate) (int64, error) {
	set := bson.M{
		"failed_attempts": update.FailedAttempts,
		"locked_until":    update.LockedUntil,
		"updated_at":      time.Now().UTC(),
	}
	if update.LastLoginAt != nil {
		set["last_login_at"] = update.LastLoginAt
	}
	if update.RefreshToken != nil {
		set["refresh_token"] = *update.RefreshToken
	}

	res, err := r.accounts.UpdateOne(ctx,
		bson.M{"_id": id, "version": expectedVersion},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return 0, fmt.Errorf("%w: update lock fields: %v", autherror.ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return 0, autherror.ErrVersionConflict
	}
	return expectedVersion + 1, nil
}

func (r *Repository) ResolveTenant(ctx context.Context, code string) (*domain.Tenant, error) {
	var doc schoolDoc
	if err := r.schools.FindOne(ctx, bson.M{"school_code": code}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find school: %v", autherror.ErrStoreUnavailable, err)
	}
	return &domain.Tenant{ID: doc.ID, Code: doc.Code, Name: doc.Name}, nil
}

// Append writes an audit log. Request origin is lifted out of the event
// context into its own fields; everything else lands in details.
func (r *Repository) Append(ctx context.Context, event domain.AuditEvent) error {
	doc := auditDoc{
		ID:        event.ID,
		Action:    string(event.Kind),
		UserID:    event.ActorID,
		CreatedAt: event.OccurredAt,
	}
	for k, v := range event.Context {
		switch k {
		case authconstant.AuditContextIP:
			doc.IP = v
		case authconstant.AuditContextUserAgent:
			doc.UserAgent = v
		default:
			if doc.Details == nil {
				doc.Details = make(map[string]string)
			}
			doc.Details[k] = v
		}
	}

	if _, err := r.audit.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("%w: insert audit log: %v", autherror.ErrStoreUnavailable, err)
	}
	return nil
}

func (d accountDoc) toDomain() *domain.Account {
	return &domain.Account{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
		Profile: domain.Profile{
			FirstName: d.FirstName,
			LastName:  d.LastName,
			Language:  domain.Language(d.Language),
		},
		TenantID:       d.SchoolID,
		FailedAttempts: d.FailedAttempts,
		LockedUntil:    d.LockedUntil,
		LastLoginAt:    d.LastLoginAt,
		RefreshToken:   d.RefreshToken,
		Version:        d.Version,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}
