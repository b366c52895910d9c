package service

import (
	"context"

	"github.com/agrovia/farmdesk/internal/core"
	"github.com/agrovia/farmdesk/internal/domain/model"
)

// SettingServiceOptions groups dependencies for SettingService.
type SettingServiceOptions struct {
	Settings core.SettingRepository
	Selector *CurrentFarmService
}

// SettingService orchestrates per-farm pricing settings. Keys are upserted,
// never duplicated, and removal is always a soft delete so historical cost
// calculations keep their inputs.
type SettingService struct {
	settings core.SettingRepository
	selector *CurrentFarmService
}

// NewSettingService constructs a new SettingService.
func NewSettingService(opts SettingServiceOptions) *SettingService {
	return &SettingService{settings: opts.Settings, selector: opts.Selector}
}

// Upsert creates or replaces a setting on the user's current farm.
func (s *SettingService) Upsert(
	ctx context.Context,
	userID string,
	req *model.UpsertSettingRequest,
) (*model.Setting, error) {
	farmID, err := s.selector.CurrentFarmID(userID)
	if err != nil {
		return nil, err
	}
	req.FarmID = farmID
	return s.settings.Upsert(ctx, req)
}

// Get retrieves a setting by key on the user's current farm.
func (s *SettingService) Get(ctx context.Context, userID, key string) (*model.Setting, error) {
	farmID, err := s.selector.CurrentFarmID(userID)
	if err != nil {
		return nil, err
	}
	return s.settings.GetByKey(ctx, farmID, key)
}

// List returns settings for the user's current farm.
func (s *SettingService) List(
	ctx context.Context,
	userID string,
	opts model.SettingsListOptions,
) ([]*model.Setting, error) {
	farmID, err := s.selector.CurrentFarmID(userID)
	if err != nil {
		return nil, err
	}
	opts.FarmID = farmID
	return s.settings.ListWithOptions(ctx, opts)
}

// Delete soft-deletes a setting by key on the user's current farm.
func (s *SettingService) Delete(ctx context.Context, userID, key string) (bool, error) {
	farmID, err := s.selector.CurrentFarmID(userID)
	if err != nil {
		return false, err
	}
	return s.settings.SoftDelete(ctx, farmID, key)
}
