//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxFarmNameLen = 255
)

// Certifications maps a certification name (e.g. "organic") to whether the
// farm currently holds it.
type Certifications map[string]bool

// Farm represents an agricultural operation owned by exactly one user.
// Farms are soft-deleted (IsActive=false) when dependent records exist and
// physically removed otherwise.
type Farm struct {
	ID             string         `json:"id"                        db:"id"`
	OwnerID        string         `json:"owner_id"                  db:"owner_id"`
	Name           string         `json:"name"                      db:"name"`
	Municipality   *string        `json:"municipality,omitempty"    db:"municipality"`
	Department     *string        `json:"department,omitempty"      db:"department"`
	AreaHectares   *float64       `json:"area_hectares,omitempty"   db:"area_hectares"`
	AltitudeMinM   *int           `json:"altitude_min_m,omitempty"  db:"altitude_min_m"`
	AltitudeMaxM   *int           `json:"altitude_max_m,omitempty"  db:"altitude_max_m"`
	Latitude       *float64       `json:"latitude,omitempty"        db:"latitude"`
	Longitude      *float64       `json:"longitude,omitempty"       db:"longitude"`
	Certifications Certifications `json:"certifications"            db:"certifications"`
	IsActive       bool           `json:"is_active"                 db:"is_active"`
	CreatedAt      time.Time      `json:"created_at"                db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"                db:"updated_at"`
}

// FarmsListOptions controls paging and filtering for listing farms.
// Q matches name via ILIKE substring; OwnerID matches exactly.
type FarmsListOptions struct {
	Limit    int
	Offset   int
	Q        *string
	OwnerID  *string
	IsActive *bool
}

// CreateFarmRequest represents parameters to create a Farm.
type CreateFarmRequest struct {
	OwnerID        string         `json:"owner_id"`
	Name           string         `json:"name"`
	Municipality   *string        `json:"municipality,omitempty"`
	Department     *string        `json:"department,omitempty"`
	AreaHectares   *float64       `json:"area_hectares,omitempty"`
	AltitudeMinM   *int           `json:"altitude_min_m,omitempty"`
	AltitudeMaxM   *int           `json:"altitude_max_m,omitempty"`
	Latitude       *float64       `json:"latitude,omitempty"`
	Longitude      *float64       `json:"longitude,omitempty"`
	Certifications Certifications `json:"certifications,omitempty"`
}

// UpdateFarmRequest represents parameters to update a Farm.
type UpdateFarmRequest struct {
	Name           *string        `json:"name,omitempty"`
	Municipality   *string        `json:"municipality,omitempty"`
	Department     *string        `json:"department,omitempty"`
	AreaHectares   *float64       `json:"area_hectares,omitempty"`
	AltitudeMinM   *int           `json:"altitude_min_m,omitempty"`
	AltitudeMaxM   *int           `json:"altitude_max_m,omitempty"`
	Latitude       *float64       `json:"latitude,omitempty"`
	Longitude      *float64       `json:"longitude,omitempty"`
	Certifications Certifications `json:"certifications,omitempty"`
}

// Validate validates CreateFarmRequest.
func (r *CreateFarmRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return errors.New("name is required and cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxFarmNameLen {
		return errors.New("name cannot exceed 255 characters")
	}
	if strings.TrimSpace(r.OwnerID) == "" {
		return errors.New("owner_id is required")
	}
	if r.AreaHectares != nil && *r.AreaHectares < 0 {
		return errors.New("area_hectares cannot be negative")
	}
	if err := validateAltitudeRange(r.AltitudeMinM, r.AltitudeMaxM); err != nil {
		return err
	}
	return validateCoordinates(r.Latitude, r.Longitude)
}

// HasUpdates reports whether any field is set in UpdateFarmRequest.
func (r *UpdateFarmRequest) HasUpdates() bool {
	return r.Name != nil || r.Municipality != nil || r.Department != nil ||
		r.AreaHectares != nil || r.AltitudeMinM != nil || r.AltitudeMaxM != nil ||
		r.Latitude != nil || r.Longitude != nil || r.Certifications != nil
}

// Validate validates UpdateFarmRequest, ensuring at least one field is set and values are sane.
func (r *UpdateFarmRequest) Validate() error {
	if !r.HasUpdates() {
		return errors.New("at least one field must be updated")
	}
	if r.Name != nil {
		n := strings.TrimSpace(*r.Name)
		if n == "" {
			return errors.New("name cannot be empty")
		}
		if utf8.RuneCountInString(n) > maxFarmNameLen {
			return errors.New("name cannot exceed 255 characters")
		}
	}
	if r.AreaHectares != nil && *r.AreaHectares < 0 {
		return errors.New("area_hectares cannot be negative")
	}
	if err := validateAltitudeRange(r.AltitudeMinM, r.AltitudeMaxM); err != nil {
		return err
	}
	return validateCoordinates(r.Latitude, r.Longitude)
}

func validateAltitudeRange(minM, maxM *int) error {
	if minM != nil && maxM != nil && *minM > *maxM {
		return errors.New("altitude_min_m cannot exceed altitude_max_m")
	}
	return nil
}

func validateCoordinates(lat, lon *float64) error {
	if lat != nil && (*lat < -90 || *lat > 90) {
		return errors.New("latitude must be between -90 and 90")
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}
