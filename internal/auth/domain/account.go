package domain

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

type Language string

const (
	LanguagePunjabi Language = "pa"
	LanguageHindi   Language = "hi"
	LanguageEnglish Language = "en"
)

type Profile struct {
	FirstName string
	LastName  string
	Language  Language
}

// Account is the unit of consistency for lock state. Every write of
// FailedAttempts, LockedUntil or RefreshToken goes through a conditional
// update on Version.
type Account struct {
	ID             string
	Email          string
	PasswordHash   string
	Role           Role
	Profile        Profile
	TenantID       string
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	RefreshToken   string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LockUpdate is the set of fields a committed lock transition writes.
// A nil RefreshToken leaves the stored token untouched; a pointer to ""
// clears it.
type LockUpdate struct {
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	RefreshToken   *string
}

// Apply returns a copy of a with u written over it and Version set to version.
func (u LockUpdate) Apply(a Account, version int64) Account {
	a.FailedAttempts = u.FailedAttempts
	a.LockedUntil = u.LockedUntil
	if u.LastLoginAt != nil {
		a.LastLoginAt = u.LastLoginAt
	}
	if u.RefreshToken != nil {
		a.RefreshToken = *u.RefreshToken
	}
	a.Version = version
	return a
}

type Tenant struct {
	ID   string
	Code string
	Name string
}
