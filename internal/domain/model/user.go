package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
)

// UserProfile is the application-level profile row for a signed-in identity.
// It is mutually derived from the authentication identity (externally owned)
// and the users table, and cached per session with a freshness window.
type UserProfile struct {
	ID        string          `json:"id"         db:"id"`
	Email     string          `json:"email"      db:"email"`
	FirstName string          `json:"first_name" db:"first_name"`
	LastName  string          `json:"last_name"  db:"last_name"`
	Role      domainauth.Role `json:"role"       db:"role"`
	IsActive  bool            `json:"is_active"  db:"is_active"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Valid reports whether a cached profile entry carries every required field.
// Cache entries failing this check are discarded and treated as a miss.
func (u *UserProfile) Valid() bool {
	if u == nil {
		return false
	}
	return u.ID != "" && u.Email != "" && u.FirstName != "" && u.Role.Valid()
}

// UsersListOptions controls paging and filtering for listing users.
type UsersListOptions struct {
	Limit    int
	Offset   int
	Role     *domainauth.Role
	IsActive *bool
}

// CreateUserRequest represents parameters to create a user profile with
// password credentials.
type CreateUserRequest struct {
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Role      domainauth.Role `json:"role"`
	Password  string          `json:"password"`
}

// UpdateUserRequest represents parameters to update a user profile.
type UpdateUserRequest struct {
	FirstName *string          `json:"first_name,omitempty"`
	LastName  *string          `json:"last_name,omitempty"`
	Role      *domainauth.Role `json:"role,omitempty"`
	IsActive  *bool            `json:"is_active,omitempty"`
}

// Validate validates CreateUserRequest.
func (r *CreateUserRequest) Validate() error {
	if _, err := mail.ParseAddress(strings.TrimSpace(r.Email)); err != nil {
		return errors.New("a valid email is required")
	}
	if strings.TrimSpace(r.FirstName) == "" {
		return errors.New("first_name is required")
	}
	if !r.Role.Valid() {
		return errors.New("invalid role")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// HasUpdates reports whether any field is set in UpdateUserRequest.
func (r *UpdateUserRequest) HasUpdates() bool {
	return r.FirstName != nil || r.LastName != nil || r.Role != nil || r.IsActive != nil
}

// Validate validates UpdateUserRequest.
func (r *UpdateUserRequest) Validate() error {
	if !r.HasUpdates() {
		return errors.New("at least one field must be updated")
	}
	if r.FirstName != nil && strings.TrimSpace(*r.FirstName) == "" {
		return errors.New("first_name cannot be empty")
	}
	if r.Role != nil && !r.Role.Valid() {
		return errors.New("invalid role")
	}
	return nil
}
