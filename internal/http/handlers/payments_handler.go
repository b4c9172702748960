package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/malabartours/bookings/internal/domain"
	"github.com/malabartours/bookings/internal/http/response"
	"github.com/malabartours/bookings/internal/service"
)

// PaymentHandler receives gateway callbacks.
type PaymentHandler struct {
	Payments service.PaymentService
}

func NewPaymentHandler(payments service.PaymentService) *PaymentHandler {
	return &PaymentHandler{Payments: payments}
}

func (h *PaymentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/callback", h.callback)
	return r
}

func (h *PaymentHandler) callback(w http.ResponseWriter, r *http.Request) {
	var in domain.PaymentCallback
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}

	b, err := h.Payments.HandleCallback(r.Context(), &in)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"booking_id": b.ID,
		"status":     b.Status,
	})
}
