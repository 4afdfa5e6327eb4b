package dto

import (
	"time"

	"github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/domain"
)

// AccountOutput is what callers see of an account. It has no credential
// or refresh token field by construction.
type AccountOutput struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Language    string     `json:"language"`
	SchoolID    string     `json:"school_id"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func NewAccountOutput(a *domain.Account) *AccountOutput {
	return &AccountOutput{
		ID:          a.ID,
		Email:       a.Email,
		Role:        string(a.Role),
		FirstName:   a.Profile.FirstName,
		LastName:    a.Profile.LastName,
		Language:    string(a.Profile.Language),
		SchoolID:    a.TenantID,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
