package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agrovia/farmdesk/internal/core"
	"github.com/agrovia/farmdesk/internal/domain/model"
)

// FarmServiceOptions groups dependencies for FarmService.
type FarmServiceOptions struct {
	Farms    core.FarmRepository
	Selector *CurrentFarmService
	Logger   *slog.Logger
}

// FarmService orchestrates farm CRUD and keeps the owner's selector list in
// step with it: creates land at the head of the list, updates replace the
// entry, removals cascade the selection.
type FarmService struct {
	farms    core.FarmRepository
	selector *CurrentFarmService
	logger   *slog.Logger
}

// NewFarmService constructs a new FarmService.
func NewFarmService(opts FarmServiceOptions) *FarmService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FarmService{
		farms:    opts.Farms,
		selector: opts.Selector,
		logger:   logger.With("component", "farm_service"),
	}
}

// Create creates a farm and adds it to the owner's working list.
func (s *FarmService) Create(ctx context.Context, req *model.CreateFarmRequest) (*model.Farm, error) {
	farm, err := s.farms.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if s.selector != nil {
		s.selector.AddFarmToList(ctx, farm.OwnerID, farm)
	}
	return farm, nil
}

// GetByID retrieves a farm by ID.
func (s *FarmService) GetByID(ctx context.Context, id string) (*model.Farm, error) {
	return s.farms.GetByID(ctx, id)
}

// ListByOwner returns the owner's active farms in creation order.
func (s *FarmService) ListByOwner(ctx context.Context, ownerID string) ([]*model.Farm, error) {
	return s.farms.ListByOwner(ctx, ownerID)
}

// ListWithOptions returns farms using optional filters.
func (s *FarmService) ListWithOptions(ctx context.Context, opts model.FarmsListOptions) ([]*model.Farm, error) {
	return s.farms.ListWithOptions(ctx, normalizeFarmListOptions(opts))
}

// Update updates a farm and refreshes the owner's working list entry.
func (s *FarmService) Update(ctx context.Context, id string, req model.UpdateFarmRequest) (*model.Farm, error) {
	farm, err := s.farms.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if s.selector != nil {
		s.selector.UpdateFarmInList(ctx, farm.OwnerID, farm)
	}
	return farm, nil
}

// Delete removes a farm. Farms with dependent records (plots, collaborators,
// activities, harvests, settings) are soft-deleted so those records keep a
// resolvable parent; farms without dependents are removed outright. Either
// way the farm leaves the owner's working list and selection cascades.
func (s *FarmService) Delete(ctx context.Context, id string) (bool, error) {
	farm, err := s.farms.GetByID(ctx, id)
	if err != nil {
		return false, err
	}

	hasDeps, err := s.farms.HasDependents(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check farm dependents: %w", err)
	}

	var ok bool
	if hasDeps {
		ok, err = s.farms.SoftDelete(ctx, id)
	} else {
		ok, err = s.farms.HardDelete(ctx, id)
	}
	if err != nil {
		return false, err
	}

	if ok && s.selector != nil {
		s.selector.RemoveFarmFromList(ctx, farm.OwnerID, id)
	}
	return ok, nil
}

func normalizeFarmListOptions(opts model.FarmsListOptions) model.FarmsListOptions {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}
