package domain

import "time"

type EventKind string

const (
	EventRegister     EventKind = "REGISTER"
	EventLoginSuccess EventKind = "LOGIN_SUCCESS"
	EventLoginFailure EventKind = "LOGIN_FAILURE"
	EventLockout      EventKind = "LOCKOUT"
	EventRefresh      EventKind = "REFRESH"
)

// AuditEvent is an immutable security record. ActorID is empty for events
// that happen before any account is known, such as a failed login against
// an unknown email.
type AuditEvent struct {
	ID         string
	Kind       EventKind
	ActorID    string
	OccurredAt time.Time
	Context    map[string]string
}
