package model

import (
	"errors"
	"strings"
	"time"
)

// Plot is a farm-scoped land subdivision.
type Plot struct {
	ID           string    `json:"id"                      db:"id"`
	FarmID       string    `json:"farm_id"                 db:"farm_id"`
	Name         string    `json:"name"                    db:"name"`
	AreaHectares *float64  `json:"area_hectares,omitempty" db:"area_hectares"`
	Crop         *string   `json:"crop,omitempty"          db:"crop"`
	IsActive     bool      `json:"is_active"               db:"is_active"`
	CreatedAt    time.Time `json:"created_at"              db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"              db:"updated_at"`
}

// PlotsListOptions controls paging and filtering for listing plots.
type PlotsListOptions struct {
	Limit    int
	Offset   int
	FarmID   string
	Crop     *string
	IsActive *bool
}

// CreatePlotRequest represents parameters to create a Plot.
type CreatePlotRequest struct {
	FarmID       string   `json:"farm_id"`
	Name         string   `json:"name"`
	AreaHectares *float64 `json:"area_hectares,omitempty"`
	Crop         *string  `json:"crop,omitempty"`
}

// UpdatePlotRequest represents parameters to update a Plot.
type UpdatePlotRequest struct {
	Name         *string  `json:"name,omitempty"`
	AreaHectares *float64 `json:"area_hectares,omitempty"`
	Crop         *string  `json:"crop,omitempty"`
	IsActive     *bool    `json:"is_active,omitempty"`
}

// Validate validates CreatePlotRequest.
func (r *CreatePlotRequest) Validate() error {
	if strings.TrimSpace(r.FarmID) == "" {
		return errors.New("farm_id is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required and cannot be empty")
	}
	if r.AreaHectares != nil && *r.AreaHectares < 0 {
		return errors.New("area_hectares cannot be negative")
	}
	return nil
}

// HasUpdates reports whether any field is set in UpdatePlotRequest.
func (r *UpdatePlotRequest) HasUpdates() bool {
	return r.Name != nil || r.AreaHectares != nil || r.Crop != nil || r.IsActive != nil
}

// Validate validates UpdatePlotRequest.
func (r *UpdatePlotRequest) Validate() error {
	if !r.HasUpdates() {
		return errors.New("at least one field must be updated")
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if r.AreaHectares != nil && *r.AreaHectares < 0 {
		return errors.New("area_hectares cannot be negative")
	}
	return nil
}
