package httpx

import (
	"errors"
	"net/http"

	"github.com/agrovia/farmdesk/internal/domain/model"
	"github.com/agrovia/farmdesk/internal/service"
)

// SettingHandlers provides HTTP handlers for per-farm settings. Settings are
// keyed values on the current farm; writes are upserts.
type SettingHandlers struct {
	Svc *service.SettingService
}

const maxSettingListLimit = 200

// Upsert handles HTTP requests to create or replace a setting.
// PUT /api/settings/{key}.
func (h *SettingHandlers) Upsert(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	key := r.PathValue("key")
	if key == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("setting key is required"),
		})
		return
	}

	var req model.UpsertSettingRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.Key = key

	setting, err := h.Svc.Upsert(r.Context(), session.UserID, &req)
	if err != nil {
		WriteServiceError(w, err, "upsert_failed")
		return
	}

	WriteJSON(w, http.StatusOK, setting)
}

// Get handles HTTP requests to fetch a setting by key.
// GET /api/settings/{key}.
func (h *SettingHandlers) Get(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	key := r.PathValue("key")
	if key == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("setting key is required"),
		})
		return
	}

	setting, err := h.Svc.Get(r.Context(), session.UserID, key)
	if err != nil {
		WriteServiceError(w, err, "get_failed")
		return
	}

	WriteJSON(w, http.StatusOK, setting)
}

// List handles HTTP requests to list the current farm's settings.
// GET /api/settings.
func (h *SettingHandlers) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	limit, offset := ParseLimitOffset(r, 100, maxSettingListLimit)
	opts := model.SettingsListOptions{
		Limit:    limit,
		Offset:   offset,
		IsActive: queryBool(r, "is_active"),
	}

	settings, err := h.Svc.List(r.Context(), session.UserID, opts)
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"settings": settings,
		"limit":    limit,
		"offset":   offset,
	})
}

// Delete handles HTTP requests to retire a setting (soft delete).
// DELETE /api/settings/{key}.
func (h *SettingHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	key := r.PathValue("key")
	if key == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("setting key is required"),
		})
		return
	}

	deleted, err := h.Svc.Delete(r.Context(), session.UserID, key)
	if err != nil {
		WriteServiceError(w, err, "delete_failed")
		return
	}

	if !deleted {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "setting_not_found",
			Err:     errors.New("setting not found"),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
