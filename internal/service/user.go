package service

import (
	"context"

	"github.com/agrovia/farmdesk/internal/core"
	"github.com/agrovia/farmdesk/internal/domain/model"
)

// UserServiceOptions groups dependencies for UserService.
type UserServiceOptions struct {
	Users core.UserRepository
}

// UserService manages user profile administration. Password hashing is the
// repository's concern; the service validates requests and delegates.
type UserService struct {
	users core.UserRepository
}

// NewUserService constructs a new UserService.
func NewUserService(opts UserServiceOptions) *UserService {
	return &UserService{users: opts.Users}
}

// Create creates a user profile with password credentials.
func (s *UserService) Create(ctx context.Context, req *model.CreateUserRequest) (*model.UserProfile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.users.Create(ctx, req)
}

// GetByID retrieves a user profile by ID.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.UserProfile, error) {
	return s.users.GetByID(ctx, id)
}

// List returns user profiles matching the options.
func (s *UserService) List(ctx context.Context, opts model.UsersListOptions) ([]*model.UserProfile, error) {
	return s.users.ListWithOptions(ctx, opts)
}

// Update updates a user profile.
func (s *UserService) Update(ctx context.Context, id string, req model.UpdateUserRequest) (*model.UserProfile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.users.Update(ctx, id, req)
}

// Deactivate soft-deletes a user profile, keeping the row for audit history.
func (s *UserService) Deactivate(ctx context.Context, id string) (bool, error) {
	return s.users.SoftDelete(ctx, id)
}
