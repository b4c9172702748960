package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/malabartours/bookings/internal/domain"
	"github.com/malabartours/bookings/internal/http/middleware"
	"github.com/malabartours/bookings/internal/http/response"
	"github.com/malabartours/bookings/internal/service"
)

// BookingHandler serves the public booking widget: create a booking,
// then follow it with the manage token (guests) or a bearer token (users).
type BookingHandler struct {
	Bookings service.BookingService
}

func NewBookingHandler(bookings service.BookingService) *BookingHandler {
	return &BookingHandler{Bookings: bookings}
}

func (h *BookingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/{id}", h.getByID)
	return r
}

func (h *BookingHandler) create(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	// A bearer token overrides whatever identity the body claims. Without
	// one the caller may only book as a guest; a body-supplied user id is
	// never trusted.
	if claims := middleware.Claims(r); claims != nil {
		in.UserID = &claims.Sub
		in.GuestInfo = nil
	} else if in.UserID != nil {
		response.Unauthorized(w, "authentication required to book as a user")
		return
	}

	b, err := h.Bookings.Create(r.Context(), &in)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, b)
}

func (h *BookingHandler) getByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if claims := middleware.Claims(r); claims != nil {
		b, err := h.Bookings.Get(r.Context(), id)
		if err != nil {
			response.WriteDomainError(w, err)
			return
		}
		if b.UserID == nil || *b.UserID != claims.Sub {
			response.NotFound(w, "booking not found")
			return
		}
		response.WriteJSON(w, http.StatusOK, b)
		return
	}

	token := r.URL.Query().Get("manage_token")
	if token == "" {
		response.Unauthorized(w, "manage_token is required")
		return
	}
	b, err := h.Bookings.GetWithToken(r.Context(), id, token)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, b)
}

// MyBookingsHandler lists the authenticated user's own bookings.
type MyBookingsHandler struct {
	Bookings service.BookingService
}

func NewMyBookingsHandler(bookings service.BookingService) *MyBookingsHandler {
	return &MyBookingsHandler{Bookings: bookings}
}

func (h *MyBookingsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	return r
}

func (h *MyBookingsHandler) list(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	if claims == nil {
		response.Unauthorized(w, "authentication required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	bookings, err := h.Bookings.ListByUser(r.Context(), claims.Sub, limit, offset)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}
