package service

import (
	"context"

	"github.com/agrovia/farmdesk/internal/core"
	"github.com/agrovia/farmdesk/internal/domain/model"
)

// PlotServiceOptions groups dependencies for PlotService.
type PlotServiceOptions struct {
	Plots    core.PlotRepository
	Selector *CurrentFarmService
}

// PlotService orchestrates plot CRUD. Every operation is farm-scoped: the
// caller's current farm is a hard precondition, resolved through the
// selector, never defaulted.
type PlotService struct {
	plots    core.PlotRepository
	selector *CurrentFarmService
}

// NewPlotService constructs a new PlotService.
func NewPlotService(opts PlotServiceOptions) *PlotService {
	return &PlotService{plots: opts.Plots, selector: opts.Selector}
}

// Create creates a plot on the user's current farm.
func (s *PlotService) Create(ctx context.Context, userID string, req *model.CreatePlotRequest) (*model.Plot, error) {
	farmID, err := s.selector.CurrentFarmID(userID)
	if err != nil {
		return nil, err
	}
	req.FarmID = farmID
	return s.plots.Create(ctx, req)
}

// GetByID retrieves a plot by ID.
func (s *PlotService) GetByID(ctx context.Context, id string) (*model.Plot, error) {
	return s.plots.GetByID(ctx, id)
}

// List returns plots for the user's current farm.
func (s *PlotService) List(ctx context.Context, userID string, opts model.PlotsListOptions) ([]*model.Plot, error) {
	farmID, err := s.selector.CurrentFarmID(userID)
	if err != nil {
		return nil, err
	}
	opts.FarmID = farmID
	return s.plots.ListWithOptions(ctx, opts)
}

// Update updates a plot.
func (s *PlotService) Update(ctx context.Context, id string, req model.UpdatePlotRequest) (*model.Plot, error) {
	return s.plots.Update(ctx, id, req)
}

// Delete soft-deletes a plot. Activities and harvests keep their plot
// reference, so the row stays.
func (s *PlotService) Delete(ctx context.Context, id string) (bool, error) {
	return s.plots.SoftDelete(ctx, id)
}
