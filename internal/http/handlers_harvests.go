package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/agrovia/farmdesk/internal/domain/model"
	"github.com/agrovia/farmdesk/internal/service"
)

// HarvestHandlers provides HTTP handlers for harvest operations, scoped to
// the signed-in user's current farm.
type HarvestHandlers struct {
	Svc *service.HarvestService
}

const maxHarvestListLimit = 200

// Create handles HTTP requests to record a harvest on the current farm.
func (h *HarvestHandlers) Create(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	var req model.CreateHarvestRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	harvest, err := h.Svc.Create(r.Context(), session.UserID, &req)
	if err != nil {
		WriteServiceError(w, err, "create_failed")
		return
	}

	WriteJSON(w, http.StatusCreated, harvest)
}

// List handles HTTP requests to list harvests on the current farm, newest
// first, with optional plot, product, and date range filters.
func (h *HarvestHandlers) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	opts := harvestListOptions(r)
	harvests, err := h.Svc.List(r.Context(), session.UserID, opts)
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"harvests": harvests,
		"limit":    opts.Limit,
		"offset":   opts.Offset,
	})
}

// Export streams the current farm's harvests as a spreadsheet.
// GET /api/harvests/export.
func (h *HarvestHandlers) Export(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	opts := harvestListOptions(r)
	opts.Limit = 0 // the export applies its own cap
	opts.Offset = 0

	data, err := h.Svc.Export(r.Context(), session.UserID, opts)
	if err != nil {
		WriteServiceError(w, err, "export_failed")
		return
	}

	filename := "harvests-" + time.Now().Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, writeErr := w.Write(data); writeErr != nil {
		// Client disconnects are not recoverable here.
		return
	}
}

// GetByID handles HTTP requests to get a harvest by ID.
func (h *HarvestHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("harvest id is required"),
		})
		return
	}

	harvest, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, "get_failed")
		return
	}

	WriteJSON(w, http.StatusOK, harvest)
}

// Update handles HTTP requests to update a harvest. The total value is
// recomputed from quantity and price on every update.
func (h *HarvestHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("harvest id is required"),
		})
		return
	}

	var req model.UpdateHarvestRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	harvest, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		WriteServiceError(w, err, "update_failed")
		return
	}

	WriteJSON(w, http.StatusOK, harvest)
}

// Delete handles HTTP requests to delete a harvest record.
func (h *HarvestHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("harvest id is required"),
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
			ErrCode: "harvest_not_found",
			Err:     errors.New("harvest not found"),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func harvestListOptions(r *http.Request) model.HarvestsListOptions {
	limit, offset := ParseLimitOffset(r, 50, maxHarvestListLimit)
	return model.HarvestsListOptions{
		Limit:   limit,
		Offset:  offset,
		PlotID:  queryString(r, "plot_id"),
		Product: queryString(r, "product"),
		From:    queryDate(r, "from"),
		To:      queryDate(r, "to"),
	}
}
