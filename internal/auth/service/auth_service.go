package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/config"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/domain"
	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/dto"
	autherror "github.com/harshsingh-chauhan/Gyan-setu-backend/internal/errors"
	authconstant "github.com/harshsingh-chauhan/Gyan-setu-backend/pkg/constant"
)

const (
	DefaultMaxCommitRetries = 10

	// Verified against on unknown emails so they cost the same as a wrong password.
	timingEqualizerPassword = "gyan-setu-timing-equalizer"
)

type Dependencies struct {
	Accounts     domain.AccountRepository
	Tenants      domain.TenantDirectory
	Hasher       PasswordHasher
	TokenService TokenGenerator
	Guard        *LockGuard
	Audit        *AuditRecorder
	Metrics      *Metrics
	Logger       *slog.Logger
}

// AuthService runs the register, login and session workflows. It keeps no
// per-account state between calls and is safe for concurrent use.
type AuthService struct {
	repo                 domain.AccountRepository
	tenants              domain.TenantDirectory
	hasher               PasswordHasher
	tokenService         TokenGenerator
	guard                *LockGuard
	audit                *AuditRecorder
	metrics              *Metrics
	logger               *slog.Logger
	auditUnknownIdentity bool
	maxCommitRetries     int

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(deps Dependencies, cfg *config.Config) *AuthService {
	s := &AuthService{
		repo:             deps.Accounts,
		tenants:          deps.Tenants,
		hasher:           deps.Hasher,
		tokenService:     deps.TokenService,
		guard:            deps.Guard,
		audit:            deps.Audit,
		metrics:          deps.Metrics,
		logger:           deps.Logger,
		maxCommitRetries: DefaultMaxCommitRetries,
	}
	if cfg != nil {
		s.auditUnknownIdentity = cfg.AuditUnknownIdentity
		if cfg.MaxCommitRetries > 0 {
			s.maxCommitRetries = cfg.MaxCommitRetries
		}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.guard == nil {
		s.guard = NewLockGuard(0, 0, nil)
	}
	if s.audit == nil {
		s.audit = NewAuditRecorder(nil, AuditConfig{}, s.logger, s.metrics)
	}
	return s
}

func (s *AuthService) Register(ctx context.Context, input dto.RegisterInput) (*dto.AccountOutput, error) {
	tenant, err := s.tenants.ResolveTenant(ctx, input.SchoolCode)
	if err != nil {
		return nil, s.fault("register: resolve school", err)
	}
	if tenant == nil {
		return nil, autherror.ErrInvalidTenantCode
	}

	existing, err := s.repo.GetByEmail(ctx, input.Email, false)
	if err != nil {
		return nil, s.fault("register: lookup email", err)
	}
	if existing != nil {
		return nil, autherror.ErrDuplicateIdentity
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, s.fault("register: hash password", err)
	}

	now := s.guard.Now().UTC()
	account := &domain.Account{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         authconstant.DefaultUserRole,
		Profile: domain.Profile{
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Language:  parseLanguage(input.Language),
		},
		TenantID:  tenant.ID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, autherror.ErrDuplicateIdentity) {
			return nil, autherror.ErrDuplicateIdentity
		}
		return nil, s.fault("register: create account", err)
	}

	s.audit.Record(ctx, s.audit.NewEvent(domain.EventRegister, account.ID, requestContext(input.IPAddress, input.UserAgent)))
	s.metrics.registration(ctx)

	return dto.NewAccountOutput(account), nil
}

func (s *AuthService) Login(ctx context.Context, input dto.LoginInput) (*dto.TokenResponse, error) {
	account, err := s.repo.GetByEmail(ctx, input.Email, true)
	if err != nil {
		s.metrics.login(ctx, "error")
		return nil, s.fault("login: lookup email", err)
	}

	if account == nil {
		s.hasher.Verify(input.Password, s.timingEqualizerHash())
		if s.auditUnknownIdentity {
			fields := requestContext(input.IPAddress, input.UserAgent)
			if fields == nil {
				fields = map[string]string{}
			}
			fields[authconstant.AuditContextIdentity] = input.Email
			s.audit.Record(ctx, s.audit.NewEvent(domain.EventLoginFailure, "", fields))
		}
		s.metrics.login(ctx, "invalid_credentials")
		return nil, autherror.ErrInvalidCredentials
	}

	if adm := s.guard.CheckAdmissible(*account); adm.Locked {
		s.metrics.login(ctx, "locked")
		return nil, autherror.NewAccountLockedError(adm.RetryAfterSeconds)
	}

	if !s.hasher.Verify(input.Password, account.PasswordHash) {
		return nil, s.failLogin(ctx, account, input)
	}

	return s.completeLogin(ctx, account, input)
}

// failLogin commits one failed attempt and reports it. When this attempt
// moved the account into the locked state the caller sees the lock
// countdown instead of invalid credentials.
func (s *AuthService) failLogin(ctx context.Context, account *domain.Account, input dto.LoginInput) error {
	var kinds []domain.EventKind
	committed, err := s.commit(ctx, account, func(current domain.Account) (domain.LockUpdate, error) {
		if adm := s.guard.CheckAdmissible(current); adm.Locked {
			return domain.LockUpdate{}, autherror.NewAccountLockedError(adm.RetryAfterSeconds)
		}
		var next domain.Account
		next, kinds = s.guard.RecordFailure(current)
		return domain.LockUpdate{
			FailedAttempts: next.FailedAttempts,
			LockedUntil:    next.LockedUntil,
		}, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, autherror.ErrAccountLocked):
			s.metrics.login(ctx, "locked")
			return err
		case errors.Is(err, autherror.ErrAccountNotFound):
			s.metrics.login(ctx, "invalid_credentials")
			return autherror.ErrInvalidCredentials
		}
		s.metrics.login(ctx, "error")
		return s.fault("login: record failure", err)
	}

	fields := requestContext(input.IPAddress, input.UserAgent)
	events := make([]domain.AuditEvent, 0, len(kinds))
	lockedOut := false
	for _, kind := range kinds {
		if kind == domain.EventLockout {
			lockedOut = true
		}
		events = append(events, s.audit.NewEvent(kind, committed.ID, fields))
	}
	s.audit.Record(ctx, events...)

	if lockedOut && committed.LockedUntil != nil {
		s.metrics.lockout(ctx)
		s.metrics.login(ctx, "locked")
		s.logger.Warn("account locked after repeated failed logins",
			"account_id", committed.ID,
			"failed_attempts", committed.FailedAttempts,
			"locked_until", committed.LockedUntil,
		)
		return autherror.NewAccountLockedError(domain.RetryAfterSeconds(*committed.LockedUntil, s.guard.Now()))
	}

	s.metrics.login(ctx, "invalid_credentials")
	return autherror.ErrInvalidCredentials
}

func (s *AuthService) completeLogin(ctx context.Context, account *domain.Account, input dto.LoginInput) (*dto.TokenResponse, error) {
	pair, err := s.tokenService.Generate(account.ID, string(account.Role))
	if err != nil {
		s.metrics.login(ctx, "error")
		return nil, s.fault("login: issue tokens", err)
	}

	committed, err := s.commit(ctx, account, func(current domain.Account) (domain.LockUpdate, error) {
		if adm := s.guard.CheckAdmissible(current); adm.Locked {
			return domain.LockUpdate{}, autherror.NewAccountLockedError(adm.RetryAfterSeconds)
		}
		next := s.guard.RecordSuccess(current)
		return domain.LockUpdate{
			FailedAttempts: next.FailedAttempts,
			LockedUntil:    next.LockedUntil,
			LastLoginAt:    next.LastLoginAt,
			RefreshToken:   &pair.RefreshToken,
		}, nil
	})
	if err != nil {
		if errors.Is(err, autherror.ErrAccountLocked) {
			s.metrics.login(ctx, "locked")
			return nil, err
		}
		if errors.Is(err, autherror.ErrAccountNotFound) {
			s.metrics.login(ctx, "invalid_credentials")
			return nil, autherror.ErrInvalidCredentials
		}
		s.metrics.login(ctx, "error")
		return nil, s.fault("login: record success", err)
	}

	s.audit.Record(ctx, s.audit.NewEvent(domain.EventLoginSuccess, committed.ID, requestContext(input.IPAddress, input.UserAgent)))
	s.metrics.login(ctx, "success")

	return s.tokenResponse(pair), nil
}

// Refresh rotates the single active refresh token of an account. Only the
// token stored by the most recent login or refresh is accepted.
func (s *AuthService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.TokenResponse, error) {
	account, err := s.accountForRefreshToken(ctx, "refresh", input.RefreshToken)
	if err != nil {
		s.metrics.refresh(ctx, string(autherror.KindOf(err)))
		return nil, err
	}

	if adm := s.guard.CheckAdmissible(*account); adm.Locked {
		s.metrics.refresh(ctx, string(autherror.KindAccountLocked))
		return nil, autherror.NewAccountLockedError(adm.RetryAfterSeconds)
	}

	pair, err := s.tokenService.Generate(account.ID, string(account.Role))
	if err != nil {
		s.metrics.refresh(ctx, "error")
		return nil, s.fault("refresh: issue tokens", err)
	}

	committed, err := s.commit(ctx, account, func(current domain.Account) (domain.LockUpdate, error) {
		if !sameToken(current.RefreshToken, input.RefreshToken) {
			return domain.LockUpdate{}, autherror.ErrInvalidRefreshToken
		}
		return domain.LockUpdate{
			FailedAttempts: current.FailedAttempts,
			LockedUntil:    current.LockedUntil,
			RefreshToken:   &pair.RefreshToken,
		}, nil
	})
	if err != nil {
		s.metrics.refresh(ctx, string(autherror.KindOf(err)))
		if errors.Is(err, autherror.ErrInvalidRefreshToken) || errors.Is(err, autherror.ErrAccountNotFound) {
			return nil, autherror.ErrInvalidRefreshToken
		}
		return nil, s.fault("refresh: rotate token", err)
	}

	s.audit.Record(ctx, s.audit.NewEvent(domain.EventRefresh, committed.ID, requestContext(input.IPAddress, input.UserAgent)))
	s.metrics.refresh(ctx, "success")

	return s.tokenResponse(pair), nil
}

// Logout clears the stored refresh token, ending the active session.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	account, err := s.accountForRefreshToken(ctx, "logout", refreshToken)
	if err != nil {
		return err
	}

	cleared := ""
	_, err = s.commit(ctx, account, func(current domain.Account) (domain.LockUpdate, error) {
		if !sameToken(current.RefreshToken, refreshToken) {
			return domain.LockUpdate{}, autherror.ErrInvalidRefreshToken
		}
		return domain.LockUpdate{
			FailedAttempts: current.FailedAttempts,
			LockedUntil:    current.LockedUntil,
			RefreshToken:   &cleared,
		}, nil
	})
	if err != nil {
		if errors.Is(err, autherror.ErrInvalidRefreshToken) || errors.Is(err, autherror.ErrAccountNotFound) {
			return autherror.ErrInvalidRefreshToken
		}
		return s.fault("logout: clear session", err)
	}

	s.logger.Info("session ended", "account_id", account.ID)
	return nil
}

// UnlockAccount is the operator reset of the failure counter and lock.
func (s *AuthService) UnlockAccount(ctx context.Context, accountID string) error {
	account, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return s.fault("unlock: lookup account", err)
	}
	if account == nil {
		return autherror.ErrAccountNotFound
	}

	_, err = s.commit(ctx, account, func(current domain.Account) (domain.LockUpdate, error) {
		next := s.guard.Unlock(current)
		return domain.LockUpdate{
			FailedAttempts: next.FailedAttempts,
			LockedUntil:    next.LockedUntil,
		}, nil
	})
	if err != nil {
		if errors.Is(err, autherror.ErrAccountNotFound) {
			return err
		}
		return s.fault("unlock: reset lock", err)
	}

	s.logger.Info("account unlocked by operator", "account_id", accountID)
	return nil
}

func (s *AuthService) accountForRefreshToken(ctx context.Context, op, refreshToken string) (*domain.Account, error) {
	if refreshToken == "" {
		return nil, autherror.ErrInvalidRefreshToken
	}
	claims, err := s.tokenService.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, autherror.ErrInvalidRefreshToken
	}

	account, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, s.fault(op+": lookup account", err)
	}
	if account == nil || !sameToken(account.RefreshToken, refreshToken) {
		return nil, autherror.ErrInvalidRefreshToken
	}
	return account, nil
}

// commit writes the update produced by mutate with a conditional update on
// the account version. On a lost race it reloads the account and runs
// mutate again on the fresh snapshot, so no attempt is ever lost.
func (s *AuthService) commit(
	ctx context.Context,
	account *domain.Account,
	mutate func(current domain.Account) (domain.LockUpdate, error),
) (*domain.Account, error) {
	current := account
	for attempt := 1; ; attempt++ {
		update, err := mutate(*current)
		if err != nil {
			return nil, err
		}

		version, err := s.repo.UpdateLockFields(ctx, current.ID, current.Version, update)
		if err == nil {
			next := update.Apply(*current, version)
			return &next, nil
		}
		if !errors.Is(err, autherror.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= s.maxCommitRetries {
			return nil, fmt.Errorf("%w: %d conflicting writes on account %s", autherror.ErrStoreUnavailable, attempt, current.ID)
		}

		current, err = s.repo.GetByID(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, autherror.ErrAccountNotFound
		}
	}
}

func (s *AuthService) tokenResponse(pair *TokenPair) *dto.TokenResponse {
	return &dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    authconstant.DefaultTokenType,
		ExpiresIn:    int(s.tokenService.GetAccessTokenExpiry().Seconds()),
	}
}

// fault logs infrastructure errors with their full cause before they are
// returned; business errors pass through untouched.
func (s *AuthService) fault(op string, err error) error {
	if autherror.IsInfrastructure(err) {
		s.logger.Error("auth operation failed", "op", op, "kind", autherror.KindOf(err), "error", err)
	}
	return err
}

func (s *AuthService) timingEqualizerHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(timingEqualizerPassword)
		if err != nil {
			s.logger.Error("failed to prepare timing equalizer hash", "error", err)
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func sameToken(stored, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

func requestContext(ip, userAgent string) map[string]string {
	if ip == "" && userAgent == "" {
		return nil
	}
	fields := make(map[string]string, 2)
	if ip != "" {
		fields[authconstant.AuditContextIP] = ip
	}
	if userAgent != "" {
		fields[authconstant.AuditContextUserAgent] = userAgent
	}
	return fields
}

func parseLanguage(value string) domain.Language {
	switch lang := domain.Language(value); lang {
	case domain.LanguagePunjabi, domain.LanguageHindi, domain.LanguageEnglish:
		return lang
	}
	return authconstant.DefaultLanguage
}
