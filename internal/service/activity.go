package service

import (
	"context"

	"github.com/agrovia/farmdesk/internal/core"
	"github.com/agrovia/farmdesk/internal/domain/model"
)

// ActivityServiceOptions groups dependencies for ActivityService.
type ActivityServiceOptions struct {
	Activities core.ActivityRepository
	Selector   *CurrentFarmService
}

// ActivityService orchestrates the farm work log. Total cost is derived in
// the data layer; deletes are physical since nothing references activities.
type ActivityService struct {
	activities core.ActivityRepository
	selector   *CurrentFarmService
}

// NewActivityService constructs a new ActivityService.
func NewActivityService(opts ActivityServiceOptions) *ActivityService {
	return &ActivityService{activities: opts.Activities, selector: opts.Selector}
}

// Create records an activity on the user's current farm.
func (s *ActivityService) Create(
	ctx context.Context,
	userID string,
	req *model.CreateActivityRequest,
) (*model.Activity, error) {
	farmID, err := s.selector.CurrentFarmID(userID)
	if err != nil {
		return nil, err
	}
	req.FarmID = farmID
	return s.activities.Create(ctx, req)
}

// GetByID retrieves an activity by ID.
func (s *ActivityService) GetByID(ctx context.Context, id string) (*model.Activity, error) {
	return s.activities.GetByID(ctx, id)
}

// List returns activities for the user's current farm.
func (s *ActivityService) List(
	ctx context.Context,
	userID string,
	opts model.ActivitiesListOptions,
) ([]*model.Activity, error) {
	farmID, err := s.selector.CurrentFarmID(userID)
	if err != nil {
		return nil, err
	}
	opts.FarmID = farmID
	return s.activities.ListWithOptions(ctx, opts)
}

// Update updates an activity.
func (s *ActivityService) Update(
	ctx context.Context,
	id string,
	req model.UpdateActivityRequest,
) (*model.Activity, error) {
	return s.activities.Update(ctx, id, req)
}

// Delete removes an activity.
func (s *ActivityService) Delete(ctx context.Context, id string) (bool, error) {
	return s.activities.Delete(ctx, id)
}
