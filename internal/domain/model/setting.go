package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Setting is a per-farm pricing/configuration entry. Settings are always
// soft-deleted so historical cost calculations keep their inputs.
type Setting struct {
	ID        string          `json:"id"         db:"id"`
	FarmID    string          `json:"farm_id"    db:"farm_id"`
	Key       string          `json:"key"        db:"key"`
	Value     json.RawMessage `json:"value"      db:"value"`
	IsActive  bool            `json:"is_active"  db:"is_active"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// SettingsListOptions controls paging and filtering for listing settings.
type SettingsListOptions struct {
	Limit    int
	Offset   int
	FarmID   string
	IsActive *bool
}

// UpsertSettingRequest represents parameters to create or replace a Setting
// value for a farm-scoped key.
type UpsertSettingRequest struct {
	FarmID string          `json:"farm_id"`
	Key    string          `json:"key"`
	Value  json.RawMessage `json:"value"`
}

// Validate validates UpsertSettingRequest.
func (r *UpsertSettingRequest) Validate() error {
	if strings.TrimSpace(r.FarmID) == "" {
		return errors.New("farm_id is required")
	}
	if strings.TrimSpace(r.Key) == "" {
		return errors.New("key is required")
	}
	if len(r.Value) == 0 || !json.Valid(r.Value) {
		return errors.New("value must be valid JSON")
	}
	return nil
}
