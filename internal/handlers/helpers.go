package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/steward/internal/models"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a standard success JSON response.
func WriteSuccess(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteServiceError maps service errors to HTTP status codes and writes
// a standard error response.
func WriteServiceError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, models.ErrValidation):
		return WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		return WriteError(w, http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, models.ErrForbidden):
		return WriteError(w, http.StatusForbidden, "Not allowed")
	case errors.Is(err, models.ErrNotFound):
		return WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, models.ErrQueueDispatch):
		return WriteError(w, http.StatusBadGateway, "Failed to dispatch classification job")
	default:
		return WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
