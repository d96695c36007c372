package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/storefront-labs/storefront/internal/entity"
	"github.com/storefront-labs/storefront/internal/service"
)

type envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Data: data})
}

func respondError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "err", err)
		// Do not leak internals to the client.
		err = errors.New("internal server error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Error: &apiError{Code: code, Message: err.Error()}})
}

// classify maps the domain error taxonomy onto HTTP statuses and stable
// error codes.
func classify(err error) (int, string) {
	var validationErr *entity.ValidationError
	var unavailableErr *entity.ProductUnavailableError
	var inventoryErr *entity.InsufficientInventoryError
	var statusErr *entity.InvalidStatusError
	var cancelErr *entity.CancellationNotAllowedError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.As(err, &unavailableErr):
		return http.StatusConflict, "PRODUCT_UNAVAILABLE"
	case errors.As(err, &inventoryErr):
		return http.StatusConflict, "INSUFFICIENT_INVENTORY"
	case errors.As(err, &statusErr):
		return http.StatusBadRequest, "INVALID_STATUS"
	case errors.As(err, &cancelErr):
		return http.StatusConflict, "CANCELLATION_NOT_ALLOWED"
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, &entity.ValidationError{Field: "body", Reason: "invalid JSON"})
		return false
	}
	return true
}
