package model

import (
	"errors"
	"strings"
	"time"
)

// Harvest records a quantity of product taken off a farm (optionally a
// specific plot) on a date. TotalValue is derived: quantity_kg * price_per_kg.
type Harvest struct {
	ID         string    `json:"id"                db:"id"`
	FarmID     string    `json:"farm_id"           db:"farm_id"`
	PlotID     *string   `json:"plot_id,omitempty" db:"plot_id"`
	Date       time.Time `json:"date"              db:"date"`
	Product    string    `json:"product"           db:"product"`
	QuantityKg float64   `json:"quantity_kg"       db:"quantity_kg"`
	PricePerKg float64   `json:"price_per_kg"      db:"price_per_kg"`
	TotalValue float64   `json:"total_value"       db:"total_value"`
	Notes      *string   `json:"notes,omitempty"   db:"notes"`
	CreatedAt  time.Time `json:"created_at"        db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"        db:"updated_at"`
}

// HarvestsListOptions controls paging and filtering for listing harvests.
type HarvestsListOptions struct {
	Limit   int
	Offset  int
	FarmID  string
	PlotID  *string
	Product *string
	From    *time.Time
	To      *time.Time
}

// CreateHarvestRequest represents parameters to create a Harvest.
type CreateHarvestRequest struct {
	FarmID     string    `json:"farm_id"`
	PlotID     *string   `json:"plot_id,omitempty"`
	Date       time.Time `json:"date"`
	Product    string    `json:"product"`
	QuantityKg float64   `json:"quantity_kg"`
	PricePerKg float64   `json:"price_per_kg"`
	Notes      *string   `json:"notes,omitempty"`
}

// UpdateHarvestRequest represents parameters to update a Harvest.
type UpdateHarvestRequest struct {
	PlotID     *string    `json:"plot_id,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
	Product    *string    `json:"product,omitempty"`
	QuantityKg *float64   `json:"quantity_kg,omitempty"`
	PricePerKg *float64   `json:"price_per_kg,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

// TotalValue computes the derived total for the requested values.
func (r *CreateHarvestRequest) TotalValue() float64 {
	return r.QuantityKg * r.PricePerKg
}

// Validate validates CreateHarvestRequest.
func (r *CreateHarvestRequest) Validate() error {
	if strings.TrimSpace(r.FarmID) == "" {
		return errors.New("farm_id is required")
	}
	if strings.TrimSpace(r.Product) == "" {
		return errors.New("product is required")
	}
	if r.Date.IsZero() {
		return errors.New("date is required")
	}
	if r.QuantityKg <= 0 {
		return errors.New("quantity_kg must be > 0")
	}
	if r.PricePerKg < 0 {
		return errors.New("price_per_kg cannot be negative")
	}
	return nil
}

// HasUpdates reports whether any field is set in UpdateHarvestRequest.
func (r *UpdateHarvestRequest) HasUpdates() bool {
	return r.PlotID != nil || r.Date != nil || r.Product != nil ||
		r.QuantityKg != nil || r.PricePerKg != nil || r.Notes != nil
}

// Validate validates UpdateHarvestRequest.
func (r *UpdateHarvestRequest) Validate() error {
	if !r.HasUpdates() {
		return errors.New("at least one field must be updated")
	}
	if r.Product != nil && strings.TrimSpace(*r.Product) == "" {
		return errors.New("product cannot be empty")
	}
	if r.QuantityKg != nil && *r.QuantityKg <= 0 {
		return errors.New("quantity_kg must be > 0")
	}
	if r.PricePerKg != nil && *r.PricePerKg < 0 {
		return errors.New("price_per_kg cannot be negative")
	}
	return nil
}
