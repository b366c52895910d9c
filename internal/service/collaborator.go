package service

import (
	"context"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/agrovia/farmdesk/internal/core"
	"github.com/agrovia/farmdesk/internal/domain/model"
	apperrors "github.com/agrovia/farmdesk/internal/errors"
)

// CollaboratorServiceOptions groups dependencies for CollaboratorService.
type CollaboratorServiceOptions struct {
	Collaborators core.CollaboratorRepository
	Selector      *CurrentFarmService
}

// CollaboratorService orchestrates collaborator CRUD, scoped to the caller's
// current farm. Collaborators are always soft-deleted so activity history
// keeps naming who did the work.
type CollaboratorService struct {
	collaborators core.CollaboratorRepository
	selector      *CurrentFarmService
}

// NewCollaboratorService constructs a new CollaboratorService.
func NewCollaboratorService(opts CollaboratorServiceOptions) *CollaboratorService {
	return &CollaboratorService{collaborators: opts.Collaborators, selector: opts.Selector}
}

// Create creates a collaborator on the user's current farm.
func (s *CollaboratorService) Create(
	ctx context.Context,
	userID string,
	req *model.CreateCollaboratorRequest,
) (*model.Collaborator, error) {
	farmID, err := s.selector.CurrentFarmID(userID)
	if err != nil {
		return nil, err
	}
	if req.Email != nil {
		if emailErr := validateEmailDomain(*req.Email); emailErr != nil {
			return nil, emailErr
		}
	}
	req.FarmID = farmID
	return s.collaborators.Create(ctx, req)
}

// GetByID retrieves a collaborator by ID.
func (s *CollaboratorService) GetByID(ctx context.Context, id string) (*model.Collaborator, error) {
	return s.collaborators.GetByID(ctx, id)
}

// List returns collaborators for the user's current farm.
func (s *CollaboratorService) List(
	ctx context.Context,
	userID string,
	opts model.CollaboratorsListOptions,
) ([]*model.Collaborator, error) {
	farmID, err := s.selector.CurrentFarmID(userID)
	if err != nil {
		return nil, err
	}
	opts.FarmID = farmID
	return s.collaborators.ListWithOptions(ctx, opts)
}

// Update updates a collaborator.
func (s *CollaboratorService) Update(
	ctx context.Context,
	id string,
	req model.UpdateCollaboratorRequest,
) (*model.Collaborator, error) {
	if req.Email != nil && *req.Email != "" {
		if emailErr := validateEmailDomain(*req.Email); emailErr != nil {
			return nil, emailErr
		}
	}
	return s.collaborators.Update(ctx, id, req)
}

// Delete soft-deletes a collaborator.
func (s *CollaboratorService) Delete(ctx context.Context, id string) (bool, error) {
	return s.collaborators.SoftDelete(ctx, id)
}

// validateEmailDomain rejects email domains without a recognized effective
// TLD, catching typos like user@gmail.con that net/mail accepts.
func validateEmailDomain(email string) error {
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return apperrors.Validation("invalid email address")
	}
	domain := strings.ToLower(email[at+1:])

	suffix, icann := publicsuffix.PublicSuffix(domain)
	if !icann || suffix == domain {
		return apperrors.Validationf("unrecognized email domain %q", domain)
	}
	return nil
}
