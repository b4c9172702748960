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

// AdminBookingHandler is the operator console: list, decide, collect, cancel.
type AdminBookingHandler struct {
	Bookings service.BookingService
	Payments service.PaymentService
}

func NewAdminBookingHandler(bookings service.BookingService, payments service.PaymentService) *AdminBookingHandler {
	return &AdminBookingHandler{Bookings: bookings, Payments: payments}
}

func (h *AdminBookingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.getByID)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/reject", h.reject)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/payment-request", h.paymentRequest)
	r.Delete("/{id}", h.hardDelete)
	return r
}

func (h *AdminBookingHandler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var status *domain.BookingStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, ok := domain.ParseBookingStatus(raw)
		if !ok {
			response.BadRequest(w, "unknown status "+raw)
			return
		}
		status = &s
	}

	bookings, pagination, err := h.Bookings.List(r.Context(), status, page, limit)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"bookings":   bookings,
		"pagination": pagination,
	})
}

func (h *AdminBookingHandler) getByID(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, b)
}

func (h *AdminBookingHandler) approve(w http.ResponseWriter, r *http.Request) {
	var in domain.ApproveBookingRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			response.BadRequest(w, "invalid json")
			return
		}
	}

	b, err := h.Bookings.Approve(r.Context(), chi.URLParam(r, "id"), middleware.Claims(r).Sub, &in)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, b)
}

func (h *AdminBookingHandler) reject(w http.ResponseWriter, r *http.Request) {
	var in domain.RejectBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.Reason == "" {
		response.BadRequest(w, "reason is required")
		return
	}

	b, err := h.Bookings.Reject(r.Context(), chi.URLParam(r, "id"), middleware.Claims(r).Sub, in.Reason)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, b)
}

func (h *AdminBookingHandler) cancel(w http.ResponseWriter, r *http.Request) {
	var in domain.CancelBookingRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			response.BadRequest(w, "invalid json")
			return
		}
	}

	b, err := h.Bookings.Cancel(r.Context(), chi.URLParam(r, "id"), middleware.Claims(r).Sub, in.Reason)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, b)
}

func (h *AdminBookingHandler) paymentRequest(w http.ResponseWriter, r *http.Request) {
	var in domain.IssuePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	method, ok := domain.ParsePaymentMethod(in.Method)
	if !ok {
		response.BadRequest(w, "method must be upi or psp")
		return
	}

	req, err := h.Payments.IssueRequest(r.Context(), chi.URLParam(r, "id"), middleware.Claims(r).Sub, method)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, req)
}

func (h *AdminBookingHandler) hardDelete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.Claims(r)
	if claims.Role != string(domain.RoleSuperAdmin) {
		response.Forbidden(w, "hard delete requires super_admin")
		return
	}
	if err := h.Bookings.HardDelete(r.Context(), chi.URLParam(r, "id"), claims.Sub); err != nil {
		response.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
