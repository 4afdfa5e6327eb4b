package constant

import "github.com/harshsingh-chauhan/Gyan-setu-backend/internal/auth/domain"

const (
	DefaultTokenType = "Bearer"
	DefaultUserRole  = domain.RoleStudent
	DefaultLanguage  = domain.LanguagePunjabi

	HeaderRetryAfter = "Retry-After"

	AuditContextIP        = "ip"
	AuditContextUserAgent = "user_agent"
	AuditContextIdentity  = "identity"
)
