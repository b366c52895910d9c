package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import "time"

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleFarmOwner    Role = "farm_owner"
	RoleFarmManager  Role = "farm_manager"
	RoleCollaborator Role = "collaborator"
)

// Valid reports whether the role is one of the supported application roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFarmOwner, RoleFarmManager, RoleCollaborator:
		return true
	default:
		return false
	}
}

// Level returns the position of the role in the authorization hierarchy.
// Collaborator < FarmManager < FarmOwner < Admin. Unknown roles sit below
// every valid role.
func (r Role) Level() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleFarmOwner:
		return 2
	case RoleFarmManager:
		return 1
	case RoleCollaborator:
		return 0
	default:
		return -1
	}
}

// Identity represents the authenticated principal returned by a credential
// provider. Adapters map provider-specific claims into this shape.
type Identity struct {
	UserID    string // stable user identifier (e.g., profile row id or sub)
	FirstName string
	LastName  string
	Email     string
	Groups    []string
	ExpiresAt time.Time // absolute expiry of the issued credential
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsAdmin returns true if the session role is admin.
func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }
