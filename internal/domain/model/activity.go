package model

import (
	"errors"
	"strings"
	"time"
)

// ActivityType classifies the kind of work an activity records.
type ActivityType string

const (
	ActivityPlanting    ActivityType = "planting"
	ActivityFertilizing ActivityType = "fertilizing"
	ActivityPruning     ActivityType = "pruning"
	ActivityWeeding     ActivityType = "weeding"
	ActivityFumigation  ActivityType = "fumigation"
	ActivityHarvesting  ActivityType = "harvesting"
	ActivityOther       ActivityType = "other"
)

// Valid reports whether the activity type is supported.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityPlanting, ActivityFertilizing, ActivityPruning,
		ActivityWeeding, ActivityFumigation, ActivityHarvesting, ActivityOther:
		return true
	default:
		return false
	}
}

// ParseActivityType normalizes an activity type string and reports whether it is supported.
func ParseActivityType(value string) (ActivityType, bool) {
	t := ActivityType(strings.ToLower(strings.TrimSpace(value)))
	if t.Valid() {
		return t, true
	}
	return "", false
}

// Activity is a farm-scoped work log entry. TotalCost is derived:
// labor_count * hours_worked * hourly_rate + supplies_cost.
type Activity struct {
	ID           string       `json:"id"                 db:"id"`
	FarmID       string       `json:"farm_id"            db:"farm_id"`
	PlotID       *string      `json:"plot_id,omitempty"  db:"plot_id"`
	Type         ActivityType `json:"type"               db:"type"`
	Date         time.Time    `json:"date"               db:"date"`
	LaborCount   int          `json:"labor_count"        db:"labor_count"`
	HoursWorked  float64      `json:"hours_worked"       db:"hours_worked"`
	HourlyRate   float64      `json:"hourly_rate"        db:"hourly_rate"`
	SuppliesCost float64      `json:"supplies_cost"      db:"supplies_cost"`
	TotalCost    float64      `json:"total_cost"         db:"total_cost"`
	Notes        *string      `json:"notes,omitempty"    db:"notes"`
	CreatedAt    time.Time    `json:"created_at"         db:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"         db:"updated_at"`
}

// ActivitiesListOptions controls paging and filtering for listing activities.
type ActivitiesListOptions struct {
	Limit  int
	Offset int
	FarmID string
	PlotID *string
	Type   *ActivityType
	From   *time.Time
	To     *time.Time
}

// CreateActivityRequest represents parameters to create an Activity.
type CreateActivityRequest struct {
	FarmID       string       `json:"farm_id"`
	PlotID       *string      `json:"plot_id,omitempty"`
	Type         ActivityType `json:"type"`
	Date         time.Time    `json:"date"`
	LaborCount   int          `json:"labor_count"`
	HoursWorked  float64      `json:"hours_worked"`
	HourlyRate   float64      `json:"hourly_rate"`
	SuppliesCost float64      `json:"supplies_cost"`
	Notes        *string      `json:"notes,omitempty"`
}

// UpdateActivityRequest represents parameters to update an Activity.
type UpdateActivityRequest struct {
	PlotID       *string       `json:"plot_id,omitempty"`
	Type         *ActivityType `json:"type,omitempty"`
	Date         *time.Time    `json:"date,omitempty"`
	LaborCount   *int          `json:"labor_count,omitempty"`
	HoursWorked  *float64      `json:"hours_worked,omitempty"`
	HourlyRate   *float64      `json:"hourly_rate,omitempty"`
	SuppliesCost *float64      `json:"supplies_cost,omitempty"`
	Notes        *string       `json:"notes,omitempty"`
}

// TotalCost computes the derived total for the requested values.
func (r *CreateActivityRequest) TotalCost() float64 {
	return float64(r.LaborCount)*r.HoursWorked*r.HourlyRate + r.SuppliesCost
}

// Validate validates CreateActivityRequest.
func (r *CreateActivityRequest) Validate() error {
	if strings.TrimSpace(r.FarmID) == "" {
		return errors.New("farm_id is required")
	}
	r.Type = ActivityType(strings.ToLower(strings.TrimSpace(string(r.Type))))
	if !r.Type.Valid() {
		return errors.New("invalid activity type")
	}
	if r.Date.IsZero() {
		return errors.New("date is required")
	}
	if r.LaborCount < 0 {
		return errors.New("labor_count cannot be negative")
	}
	if r.HoursWorked < 0 || r.HourlyRate < 0 || r.SuppliesCost < 0 {
		return errors.New("cost components cannot be negative")
	}
	return nil
}

// HasUpdates reports whether any field is set in UpdateActivityRequest.
func (r *UpdateActivityRequest) HasUpdates() bool {
	return r.PlotID != nil || r.Type != nil || r.Date != nil || r.LaborCount != nil ||
		r.HoursWorked != nil || r.HourlyRate != nil || r.SuppliesCost != nil || r.Notes != nil
}

// Validate validates UpdateActivityRequest.
func (r *UpdateActivityRequest) Validate() error {
	if !r.HasUpdates() {
		return errors.New("at least one field must be updated")
	}
	if r.Type != nil {
		t := ActivityType(strings.ToLower(strings.TrimSpace(string(*r.Type))))
		if !t.Valid() {
			return errors.New("invalid activity type")
		}
		*r.Type = t
	}
	if r.LaborCount != nil && *r.LaborCount < 0 {
		return errors.New("labor_count cannot be negative")
	}
	if r.HoursWorked != nil && *r.HoursWorked < 0 {
		return errors.New("hours_worked cannot be negative")
	}
	if r.HourlyRate != nil && *r.HourlyRate < 0 {
		return errors.New("hourly_rate cannot be negative")
	}
	if r.SuppliesCost != nil && *r.SuppliesCost < 0 {
		return errors.New("supplies_cost cannot be negative")
	}
	return nil
}
