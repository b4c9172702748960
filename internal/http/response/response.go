package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/malabartours/bookings/internal/domain"
	"github.com/malabartours/bookings/pkg/logger"
)

// ErrorResponse is the JSON shape of every error this API returns.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeUpstream      = "UPSTREAM_ERROR"
	CodeRateLimit     = "RATE_LIMIT_EXCEEDED"
	CodeInternalError = "INTERNAL_ERROR"
	CodeInvalidToken  = "INVALID_TOKEN"
)

func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func WriteError(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WriteDomainError maps the domain error taxonomy onto HTTP statuses.
// Anything unrecognized is a 500 with the detail kept out of the body.
func WriteDomainError(w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		conflictErr   *domain.ConflictError
		authzErr      *domain.AuthorizationError
		upstreamErr   *domain.UpstreamError
	)
	switch {
	case errors.As(err, &validationErr):
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Code:    CodeInvalidInput,
			Details: validationErr.Errors,
		})
	case errors.As(err, &notFoundErr):
		WriteError(w, http.StatusNotFound, notFoundErr.Error(), CodeNotFound)
	case errors.As(err, &conflictErr):
		WriteError(w, http.StatusConflict, conflictErr.Error(), CodeConflict)
	case errors.As(err, &authzErr):
		WriteError(w, http.StatusForbidden, authzErr.Error(), CodeForbidden)
	case errors.As(err, &upstreamErr):
		WriteError(w, http.StatusBadGateway, "payment provider unavailable", CodeUpstream)
	default:
		logger.Error("unhandled error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error", CodeInternalError)
	}
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, message, CodeConflict)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}
