package httpx

import (
	"errors"
	"net/http"

	domainauth "github.com/agrovia/farmdesk/internal/domain/auth"
	"github.com/agrovia/farmdesk/internal/domain/model"
	"github.com/agrovia/farmdesk/internal/service"
)

// UserHandlers provides HTTP handlers for user administration. All routes are
// mounted behind the admin role requirement.
type UserHandlers struct {
	Svc *service.UserService
}

const maxUserListLimit = 200

// Create handles HTTP requests to create a user profile.
func (h *UserHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, err, "create_failed")
		return
	}

	WriteJSON(w, http.StatusCreated, user)
}

// List handles HTTP requests to list user profiles.
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, 50, maxUserListLimit)
	opts := model.UsersListOptions{
		Limit:    limit,
		Offset:   offset,
		IsActive: queryBool(r, "is_active"),
	}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role := domainauth.Role(raw)
		if !role.Valid() {
			WriteError(
				w,
				ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_query", Err: errors.New("invalid role")},
			)
			return
		}
		opts.Role = &role
	}

	users, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, err, "list_failed")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"users":  users,
		"limit":  limit,
		"offset": offset,
	})
}

// GetByID handles HTTP requests to get a user profile by ID.
func (h *UserHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("user id is required")},
		)
		return
	}

	user, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, "get_failed")
		return
	}

	WriteJSON(w, http.StatusOK, user)
}

// Update handles HTTP requests to update a user profile.
func (h *UserHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("user id is required")},
		)
		return
	}

	var req model.UpdateUserRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	user, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		WriteServiceError(w, err, "update_failed")
		return
	}

	WriteJSON(w, http.StatusOK, user)
}

// Delete handles HTTP requests to deactivate a user profile.
func (h *UserHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("user id is required")},
		)
		return
	}

	deleted, err := h.Svc.Deactivate(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err, "delete_failed")
		return
	}

	if !deleted {
		WriteError(
			w,
			ErrorParams{Code: http.StatusNotFound, ErrCode: "user_not_found", Err: errors.New("user not found")},
		)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
