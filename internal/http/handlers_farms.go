package httpx

import (
	"errors"
	"net/http"

	"github.com/agrovia/farmdesk/internal/domain/model"
	"github.com/agrovia/farmdesk/internal/service"
)

// FarmHandlers provides HTTP handlers for farm operations.
type FarmHandlers struct {
	Svc *service.FarmService
}

const maxFarmListLimit = 100

// Create handles HTTP requests to create a new farm. The signed-in user
// becomes the owner; the new farm lands at the head of their working list.
func (h *FarmHandlers) Create(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	var req model.CreateFarmRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.OwnerID = session.UserID

	farm, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, err, "create_failed")
		return
	}

	WriteJSON(w, http.StatusCreated, farm)
}

// List handles HTTP requests to list the signed-in user's farms.
func (h *FarmHandlers) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	limit, offset := ParseLimitOffset(r, 50, maxFarmListLimit)
	opts := model.FarmsListOptions{
		Limit:    limit,
		Offset:   offset,
		Q:        queryString(r, "q"),
		OwnerID:  &session.UserID,
		IsActive: queryBool(r, "is_active"),
	}

	farms, err := h.Svc.ListWithOptions(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"farms":  farms,
		"limit":  limit,
		"offset": offset,
	})
}

// GetByID handles HTTP requests to get a farm by ID.
func (h *FarmHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("farm id is required")},
		)
		return
	}

	farm, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, "get_failed")
		return
	}

	WriteJSON(w, http.StatusOK, farm)
}

// Update handles HTTP requests to update a farm.
func (h *FarmHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("farm id is required")},
		)
		return
	}

	var req model.UpdateFarmRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	farm, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		WriteServiceError(w, err, "update_failed")
		return
	}

	WriteJSON(w, http.StatusOK, farm)
}

// Delete handles HTTP requests to delete a farm. Farms with dependent records
// are retired rather than removed; either way the selection cascades.
func (h *FarmHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("farm id is required")},
		)
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, "delete_failed")
		return
	}

	if !deleted {
		WriteError(
			w,
			ErrorParams{Code: http.StatusNotFound, ErrCode: "farm_not_found", Err: errors.New("farm not found")},
		)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
