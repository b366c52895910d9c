package core

import (
	"context"

	"github.com/agrovia/farmdesk/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// FarmRepository defines the interface for farm data operations.
type FarmRepository interface {
	Create(ctx context.Context, req *model.CreateFarmRequest) (*model.Farm, error)
	GetByID(ctx context.Context, id string) (*model.Farm, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Farm, error)
	ListWithOptions(ctx context.Context, opts model.FarmsListOptions) ([]*model.Farm, error)
	Update(ctx context.Context, id string, req model.UpdateFarmRequest) (*model.Farm, error)
	// HasDependents reports whether any plot, collaborator, activity, harvest
	// or setting references the farm.
	HasDependents(ctx context.Context, id string) (bool, error)
	// SoftDelete marks the farm inactive, preserving referential history.
	SoftDelete(ctx context.Context, id string) (bool, error)
	// HardDelete physically removes the farm row.
	HardDelete(ctx context.Context, id string) (bool, error)
}

// PlotRepository defines the interface for plot data operations.
type PlotRepository interface {
	Create(ctx context.Context, req *model.CreatePlotRequest) (*model.Plot, error)
	GetByID(ctx context.Context, id string) (*model.Plot, error)
	ListWithOptions(ctx context.Context, opts model.PlotsListOptions) ([]*model.Plot, error)
	Update(ctx context.Context, id string, req model.UpdatePlotRequest) (*model.Plot, error)
	SoftDelete(ctx context.Context, id string) (bool, error)
}

// CollaboratorRepository defines the interface for collaborator data operations.
// Collaborators are always soft-deleted.
type CollaboratorRepository interface {
	Create(ctx context.Context, req *model.CreateCollaboratorRequest) (*model.Collaborator, error)
	GetByID(ctx context.Context, id string) (*model.Collaborator, error)
	ListWithOptions(ctx context.Context, opts model.CollaboratorsListOptions) ([]*model.Collaborator, error)
	Update(ctx context.Context, id string, req model.UpdateCollaboratorRequest) (*model.Collaborator, error)
	SoftDelete(ctx context.Context, id string) (bool, error)
}

// ActivityRepository defines the interface for activity data operations.
type ActivityRepository interface {
	Create(ctx context.Context, req *model.CreateActivityRequest) (*model.Activity, error)
	GetByID(ctx context.Context, id string) (*model.Activity, error)
	ListWithOptions(ctx context.Context, opts model.ActivitiesListOptions) ([]*model.Activity, error)
	Update(ctx context.Context, id string, req model.UpdateActivityRequest) (*model.Activity, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// HarvestRepository defines the interface for harvest data operations.
type HarvestRepository interface {
	Create(ctx context.Context, req *model.CreateHarvestRequest) (*model.Harvest, error)
	GetByID(ctx context.Context, id string) (*model.Harvest, error)
	ListWithOptions(ctx context.Context, opts model.HarvestsListOptions) ([]*model.Harvest, error)
	Update(ctx context.Context, id string, req model.UpdateHarvestRequest) (*model.Harvest, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// SettingRepository defines the interface for per-farm pricing settings.
// Settings are always soft-deleted.
type SettingRepository interface {
	Upsert(ctx context.Context, req *model.UpsertSettingRequest) (*model.Setting, error)
	GetByKey(ctx context.Context, farmID, key string) (*model.Setting, error)
	ListWithOptions(ctx context.Context, opts model.SettingsListOptions) ([]*model.Setting, error)
	SoftDelete(ctx context.Context, farmID, key string) (bool, error)
}

// UserRepository defines the interface for user profile data operations.
type UserRepository interface {
	Create(ctx context.Context, req *model.CreateUserRequest) (*model.UserProfile, error)
	GetByID(ctx context.Context, id string) (*model.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	ListWithOptions(ctx context.Context, opts model.UsersListOptions) ([]*model.UserProfile, error)
	Update(ctx context.Context, id string, req model.UpdateUserRequest) (*model.UserProfile, error)
	// CredentialHash returns the stored password hash for an email, for use by
	// the password authenticator.
	CredentialHash(ctx context.Context, email string) (userID string, hash []byte, err error)
	SoftDelete(ctx context.Context, id string) (bool, error)
}
