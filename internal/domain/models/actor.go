package models

// Role distinguishes farm administrators from owners.
type Role string

const (
	RoleOwner Role = "OWNER"
	RoleAdmin Role = "ADMIN"
)

// Actor is the authenticated caller as resolved from the session token.
type Actor struct {
	Role    Role
	OwnerID string
}

// IsAdmin reports whether the actor holds the administrator role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
