package httpx

import (
	"errors"
	"net/http"

	"github.com/agrovia/farmdesk/internal/domain/model"
	"github.com/agrovia/farmdesk/internal/service"
)

// ActivityHandlers provides HTTP handlers for field-activity operations,
// scoped to the signed-in user's current farm.
type ActivityHandlers struct {
	Svc *service.ActivityService
}

const maxActivityListLimit = 200

// Create handles HTTP requests to record an activity on the current farm.
func (h *ActivityHandlers) Create(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	var req model.CreateActivityRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	activity, err := h.Svc.Create(r.Context(), session.UserID, &req)
	if err != nil {
		WriteServiceError(w, err, "create_failed")
		return
	}

	WriteJSON(w, http.StatusCreated, activity)
}

// List handles HTTP requests to list activities on the current farm, newest
// first, with optional plot, type, and date range filters.
func (h *ActivityHandlers) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	limit, offset := ParseLimitOffset(r, 50, maxActivityListLimit)
	opts := model.ActivitiesListOptions{
		Limit:  limit,
		Offset: offset,
		PlotID: queryString(r, "plot_id"),
		From:   queryDate(r, "from"),
		To:     queryDate(r, "to"),
	}
	if v := r.URL.Query().Get("type"); v != "" {
		at := model.ActivityType(v)
		opts.Type = &at
	}

	activities, err := h.Svc.List(r.Context(), session.UserID, opts)
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"activities": activities,
		"limit":      limit,
		"offset":     offset,
	})
}

// GetByID handles HTTP requests to get an activity by ID.
func (h *ActivityHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("activity id is required"),
		})
		return
	}

	activity, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, "get_failed")
		return
	}

	WriteJSON(w, http.StatusOK, activity)
}

// Update handles HTTP requests to update an activity.
func (h *ActivityHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("activity id is required"),
		})
		return
	}

	var req model.UpdateActivityRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	activity, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		WriteServiceError(w, err, "update_failed")
		return
	}

	WriteJSON(w, http.StatusOK, activity)
}

// Delete handles HTTP requests to delete an activity record.
func (h *ActivityHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("activity id is required"),
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
			ErrCode: "activity_not_found",
			Err:     errors.New("activity not found"),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
