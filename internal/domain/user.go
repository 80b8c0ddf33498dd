package domain

import "time"

// Role determines what a user may do across the API and the assistant.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// CanAct reports whether the role satisfies the required role.
// Admins pass every role check.
func (r Role) CanAct(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == required
}

// IsAgent reports whether the caller works tickets (agent or admin).
func (r Role) IsAgent() bool {
	return r == RoleAgent || r == RoleAdmin
}

// User is the single account model; requesters and agents share it,
// differentiated by Role.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
