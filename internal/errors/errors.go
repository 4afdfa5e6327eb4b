package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTenantCode   = errors.New("invalid school code")
	ErrDuplicateIdentity   = errors.New("account with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountLocked       = errors.New("account locked")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrAccountNotFound     = errors.New("account not found")
	ErrRateLimited         = errors.New("too many requests")

	// Infrastructure faults. Callers only ever see a generic message for these.
	ErrHashing          = errors.New("credential hashing failed")
	ErrSigning          = errors.New("token signing failed")
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrVersionConflict is returned by a store when a conditional update lost a race.
	ErrVersionConflict = errors.New("account version conflict")
)

// Kind is the stable, machine-readable name of an error, independent of its message.
type Kind string

const (
	KindInvalidTenantCode   Kind = "invalid_tenant_code"
	KindDuplicateIdentity   Kind = "duplicate_identity"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindAccountLocked       Kind = "account_locked"
	KindInvalidRefreshToken Kind = "invalid_refresh_token"
	KindAccountNotFound     Kind = "account_not_found"
	KindRateLimited         Kind = "rate_limited"
	KindHashing             Kind = "hashing_error"
	KindSigning             Kind = "signing_error"
	KindStoreUnavailable    Kind = "store_unavailable"
	KindInternal            Kind = "internal_error"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrAccountLocked, KindAccountLocked},
	{ErrInvalidTenantCode, KindInvalidTenantCode},
	{ErrDuplicateIdentity, KindDuplicateIdentity},
	{ErrInvalidCredentials, KindInvalidCredentials},
	{ErrInvalidRefreshToken, KindInvalidRefreshToken},
	{ErrAccountNotFound, KindAccountNotFound},
	{ErrRateLimited, KindRateLimited},
	{ErrHashing, KindHashing},
	{ErrSigning, KindSigning},
	{ErrStoreUnavailable, KindStoreUnavailable},
	{ErrVersionConflict, KindStoreUnavailable},
}

// KindOf maps err onto its Kind. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsInfrastructure reports whether err is a fault whose cause must not reach the caller.
func IsInfrastructure(err error) bool {
	switch KindOf(err) {
	case KindHashing, KindSigning, KindStoreUnavailable, KindInternal:
		return true
	}
	return false
}

// AccountLockedError carries the countdown shown to a caller of a locked account.
type AccountLockedError struct {
	RetryAfterSeconds int
}

func NewAccountLockedError(retryAfterSeconds int) *AccountLockedError {
	return &AccountLockedError{RetryAfterSeconds: retryAfterSeconds}
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked. try again after %d seconds", e.RetryAfterSeconds)
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}
