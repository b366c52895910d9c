package httpx

import (
	"errors"
	"net/http"

	"github.com/agrovia/farmdesk/internal/service"
)

// StateHandlers exposes the per-user farm selector: the working list, the
// current pointer, and explicit loads.
type StateHandlers struct {
	Selector *service.CurrentFarmService
}

// GetCurrentFarm returns the selector snapshot for the signed-in user.
// GET /api/state/current-farm.
func (h *StateHandlers) GetCurrentFarm(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	snap := h.Selector.Snapshot(session.UserID)
	WriteJSON(w, http.StatusOK, snapshotPayload(snap))
}

// selectFarmRequest carries the body of a selection change.
type selectFarmRequest struct {
	FarmID string `json:"farm_id"`
}

// SelectFarm makes the given farm current. Selecting a farm that is not in
// the working list leaves the selection unchanged.
// PUT /api/state/current-farm.
func (h *StateHandlers) SelectFarm(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	var req selectFarmRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.FarmID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_request",
			Err:     errors.New("farm_id is required"),
		})
		return
	}

	h.Selector.SetCurrentFarmByID(r.Context(), session.UserID, req.FarmID)
	WriteJSON(w, http.StatusOK, snapshotPayload(h.Selector.Snapshot(session.UserID)))
}

// LoadFarms refreshes the working list from storage. A load already in flight
// makes this a no-op that returns the present snapshot.
// POST /api/state/farms/load.
func (h *StateHandlers) LoadFarms(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		writeAuthRequired(w)
		return
	}

	snap, err := h.Selector.LoadFarms(r.Context(), session.UserID)
	if err != nil {
		// The snapshot still carries the prior list plus the load error.
		WriteJSON(w, http.StatusBadGateway, snapshotPayload(snap))
		return
	}

	WriteJSON(w, http.StatusOK, snapshotPayload(snap))
}

func snapshotPayload(snap service.FarmSnapshot) map[string]any {
	return map[string]any{
		"farms":        snap.Farms,
		"current_farm": snap.CurrentFarm,
		"loading":      snap.Loading,
		"last_error":   snap.LastError,
	}
}

func writeAuthRequired(w http.ResponseWriter) {
	WriteError(w, ErrorParams{
		Code:    http.StatusUnauthorized,
		ErrCode: "authentication_required",
		Err:     errors.New("authentication required"),
	})
}
