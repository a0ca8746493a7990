package api

import (
	"encoding/json"
	"net/http"

	"kaizen/internal/envelope"
	"kaizen/internal/errors"
)

// WriteError writes err as a failed envelope with the status its code maps to
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, envelope.Failure(err), MapErrorToStatus(errors.CodeOf(err)))
}

// MapErrorToStatus maps error codes to HTTP status codes
func MapErrorToStatus(code errors.ErrorCode) int {
	switch code {
	case errors.ScopeNotFound, errors.NamespaceNotFound, errors.EntryNotFound, errors.ConflictNotFound:
		return http.StatusNotFound
	case errors.InvalidTaskSizeFilter, errors.InvalidParameter, errors.ConflictRecordInvalid:
		return http.StatusBadRequest
	case errors.CycleRejected, errors.AlreadyExists, errors.ScopeInUse, errors.ProtectedResource:
		return http.StatusConflict
	case errors.SecretDetected:
		return http.StatusUnprocessableEntity
	case errors.Unauthorized:
		return http.StatusUnauthorized
	case errors.Forbidden:
		return http.StatusForbidden
	case errors.RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// BadRequest writes a 400 INVALID_PARAMETER envelope
func BadRequest(w http.ResponseWriter, param, message string) {
	WriteError(w, errors.NewInvalidParameterError(param, message))
}
