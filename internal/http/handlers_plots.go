package httpx

import (
	"errors"
	"net/http"

	"github.com/agrovia/farmdesk/internal/domain/model"
	"github.com/agrovia/farmdesk/internal/service"
)

// PlotHandlers provides HTTP handlers for plot operations. Every operation is
// scoped to the signed-in user's current farm.
type PlotHandlers struct {
	Svc *service.PlotService
}

const maxPlotListLimit = 100

// Create handles HTTP requests to create a new plot on the current farm.
func (h *PlotHandlers) Create(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	var req model.CreatePlotRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	plot, err := h.Svc.Create(r.Context(), session.UserID, &req)
	if err != nil {
		WriteServiceError(w, err, "create_failed")
		return
	}

	WriteJSON(w, http.StatusCreated, plot)
}

// List handles HTTP requests to list plots on the current farm.
func (h *PlotHandlers) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	limit, offset := ParseLimitOffset(r, 50, maxPlotListLimit)
	opts := model.PlotsListOptions{
		Limit:    limit,
		Offset:   offset,
		Crop:     queryString(r, "crop"),
		IsActive: queryBool(r, "is_active"),
	}

	plots, err := h.Svc.List(r.Context(), session.UserID, opts)
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"plots":  plots,
		"limit":  limit,
		"offset": offset,
	})
}

// GetByID handles HTTP requests to get a plot by ID.
func (h *PlotHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("plot id is required")},
		)
		return
	}

	plot, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, "get_failed")
		return
	}

	WriteJSON(w, http.StatusOK, plot)
}

// Update handles HTTP requests to update a plot.
func (h *PlotHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("plot id is required")},
		)
		return
	}

	var req model.UpdatePlotRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	plot, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		WriteServiceError(w, err, "update_failed")
		return
	}

	WriteJSON(w, http.StatusOK, plot)
}

// Delete handles HTTP requests to retire a plot. Activities and harvests keep
// their plot reference, so this is a soft delete.
func (h *PlotHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("plot id is required")},
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
			ErrorParams{Code: http.StatusNotFound, ErrCode: "plot_not_found", Err: errors.New("plot not found")},
		)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
