// Package httpx provides HTTP handlers and utilities for the farmdesk API.
package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/agrovia/farmdesk/internal/data"
	apperrors "github.com/agrovia/farmdesk/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// notFoundSentinels are the repository-level "row absent" errors that map to a 404.
var notFoundSentinels = []error{ //nolint:gochecknoglobals // read-only lookup shared across handlers
	data.ErrFarmNotFound,
	data.ErrPlotNotFound,
	data.ErrCollaboratorNotFound,
	data.ErrActivityNotFound,
	data.ErrHarvestNotFound,
	data.ErrSettingNotFound,
	data.ErrUserNotFound,
}

// validationErrorPatterns holds common validation error substrings to classify 400 vs 5xx.
var validationErrorPatterns = []string{ //nolint:gochecknoglobals // read-only cache of patterns to avoid per-call allocations
	"is required",
	"cannot be empty",
	"cannot exceed",
	"at least one field must be updated",
	"must be one of:",
	"must be between",
	"must be non-negative",
	"must be at least",
	"invalid role",
}

// WriteServiceError maps typed application errors and repository sentinels to
// HTTP responses. Errors that carry no known code fall back to a 500 with the
// given error code.
func WriteServiceError(w http.ResponseWriter, err error, fallbackCode string) {
	for _, sentinel := range notFoundSentinels {
		if errors.Is(err, sentinel) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: err})
			return
		}
	}
	if errors.Is(err, data.ErrUserEmailExists) {
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "email_conflict", Err: err})
		return
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		if isValidationError(err) {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_failed", Err: err})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: fallbackCode, Err: err})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsConflict(err):
		status = http.StatusConflict
	case apperrors.IsValidation(err):
		status = http.StatusBadRequest
	case apperrors.IsForeignKey(err):
		status = http.StatusConflict
	case apperrors.IsUnauthorized(err):
		status = http.StatusUnauthorized
	case apperrors.IsPrecondition(err):
		status = http.StatusPreconditionFailed
	case apperrors.IsTimeout(err):
		status = http.StatusGatewayTimeout
	}

	WriteError(w, ErrorParams{Code: status, ErrCode: string(appErr.Code), Err: err})
}

// isValidationError checks for common validation error patterns to decide 400 vs 5xx.
// This is a stopgap until typed validation errors are adopted across services.
func isValidationError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, p := range validationErrorPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
