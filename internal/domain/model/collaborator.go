package model

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// Collaborator is a worker attached to a farm. Collaborators are always
// soft-deleted to preserve references from past activities.
type Collaborator struct {
	ID        string    `json:"id"                   db:"id"`
	FarmID    string    `json:"farm_id"              db:"farm_id"`
	Name      string    `json:"name"                 db:"name"`
	Email     *string   `json:"email,omitempty"      db:"email"`
	Role      *string   `json:"role,omitempty"       db:"role"`
	DailyRate *float64  `json:"daily_rate,omitempty" db:"daily_rate"`
	IsActive  bool      `json:"is_active"            db:"is_active"`
	CreatedAt time.Time `json:"created_at"           db:"created_at"`
	UpdatedAt time.Time `json:"updated_at"           db:"updated_at"`
}

// CollaboratorsListOptions controls paging and filtering for listing collaborators.
type CollaboratorsListOptions struct {
	Limit    int
	Offset   int
	FarmID   string
	Q        *string
	IsActive *bool
}

// CreateCollaboratorRequest represents parameters to create a Collaborator.
type CreateCollaboratorRequest struct {
	FarmID    string   `json:"farm_id"`
	Name      string   `json:"name"`
	Email     *string  `json:"email,omitempty"`
	Role      *string  `json:"role,omitempty"`
	DailyRate *float64 `json:"daily_rate,omitempty"`
}

// UpdateCollaboratorRequest represents parameters to update a Collaborator.
type UpdateCollaboratorRequest struct {
	Name      *string  `json:"name,omitempty"`
	Email     *string  `json:"email,omitempty"`
	Role      *string  `json:"role,omitempty"`
	DailyRate *float64 `json:"daily_rate,omitempty"`
	IsActive  *bool    `json:"is_active,omitempty"`
}

// Validate validates CreateCollaboratorRequest.
func (r *CreateCollaboratorRequest) Validate() error {
	if strings.TrimSpace(r.FarmID) == "" {
		return errors.New("farm_id is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required and cannot be empty")
	}
	if err := validateOptionalEmail(r.Email); err != nil {
		return err
	}
	if r.DailyRate != nil && *r.DailyRate < 0 {
		return errors.New("daily_rate cannot be negative")
	}
	return nil
}

// HasUpdates reports whether any field is set in UpdateCollaboratorRequest.
func (r *UpdateCollaboratorRequest) HasUpdates() bool {
	return r.Name != nil || r.Email != nil || r.Role != nil || r.DailyRate != nil || r.IsActive != nil
}

// Validate validates UpdateCollaboratorRequest.
func (r *UpdateCollaboratorRequest) Validate() error {
	if !r.HasUpdates() {
		return errors.New("at least one field must be updated")
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if err := validateOptionalEmail(r.Email); err != nil {
		return err
	}
	if r.DailyRate != nil && *r.DailyRate < 0 {
		return errors.New("daily_rate cannot be negative")
	}
	return nil
}

func validateOptionalEmail(email *string) error {
	if email == nil || strings.TrimSpace(*email) == "" {
		return nil
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(*email)); err != nil {
		return errors.New("email is not a valid address")
	}
	return nil
}
