package httpx

import (
	"errors"
	"net/http"

	"github.com/agrovia/farmdesk/internal/domain/model"
	"github.com/agrovia/farmdesk/internal/service"
)

// CollaboratorHandlers provides HTTP handlers for collaborator operations,
// scoped to the signed-in user's current farm.
type CollaboratorHandlers struct {
	Svc *service.CollaboratorService
}

const maxCollaboratorListLimit = 100

// Create handles HTTP requests to register a collaborator on the current farm.
func (h *CollaboratorHandlers) Create(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	var req model.CreateCollaboratorRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	collaborator, err := h.Svc.Create(r.Context(), session.UserID, &req)
	if err != nil {
		WriteServiceError(w, err, "create_failed")
		return
	}

	WriteJSON(w, http.StatusCreated, collaborator)
}

// List handles HTTP requests to list collaborators on the current farm.
func (h *CollaboratorHandlers) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	limit, offset := ParseLimitOffset(r, 50, maxCollaboratorListLimit)
	opts := model.CollaboratorsListOptions{
		Limit:    limit,
		Offset:   offset,
		Q:        queryString(r, "q"),
		IsActive: queryBool(r, "is_active"),
	}

	collaborators, err := h.Svc.List(r.Context(), session.UserID, opts)
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"collaborators": collaborators,
		"limit":         limit,
		"offset":        offset,
	})
}

// GetByID handles HTTP requests to get a collaborator by ID.
func (h *CollaboratorHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("collaborator id is required"),
		})
		return
	}

	collaborator, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, "get_failed")
		return
	}

	WriteJSON(w, http.StatusOK, collaborator)
}

// Update handles HTTP requests to update a collaborator.
func (h *CollaboratorHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("collaborator id is required"),
		})
		return
	}

	var req model.UpdateCollaboratorRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	collaborator, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		WriteServiceError(w, err, "update_failed")
		return
	}

	WriteJSON(w, http.StatusOK, collaborator)
}

// Delete handles HTTP requests to retire a collaborator (soft delete).
func (h *CollaboratorHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("collaborator id is required"),
		})
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, "delete_failed")
		return
	}

	if !deleted {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "collaborator_not_found",
			Err:     errors.New("collaborator not found"),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
