package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/malabartours/bookings/internal/domain"
	"github.com/malabartours/bookings/internal/http/response"
	"github.com/malabartours/bookings/internal/service"
)

type AuthHandler struct {
	Auth service.AuthService
}

func NewAuthHandler(auth service.AuthService) *AuthHandler {
	return &AuthHandler{Auth: auth}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.signup)
	r.Post("/login", h.login)
	return r
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	res, err := h.Auth.Signup(r.Context(), &in)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, res)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	res, err := h.Auth.Login(r.Context(), &in)
	if err != nil {
		// Bad credentials come out as 401, not the usual 403 mapping.
		var authzErr *domain.AuthorizationError
		if errors.As(err, &authzErr) {
			response.Unauthorized(w, authzErr.Error())
			return
		}
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}
