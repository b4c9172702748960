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

// VehicleHandler manages the fleet and its availability calendar.
type VehicleHandler struct {
	Vehicles service.VehicleService
}

func NewVehicleHandler(vehicles service.VehicleService) *VehicleHandler {
	return &VehicleHandler{Vehicles: vehicles}
}

func (h *VehicleHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.getByID)
	r.Post("/{id}/availability", h.addAvailability)
	return r
}

func (h *VehicleHandler) create(w http.ResponseWriter, r *http.Request) {
	var in domain.Vehicle
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	v, err := h.Vehicles.Create(r.Context(), &in)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, v)
}

func (h *VehicleHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	vehicles, err := h.Vehicles.List(r.Context(), limit, offset)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"vehicles": vehicles})
}

func (h *VehicleHandler) getByID(w http.ResponseWriter, r *http.Request) {
	v, err := h.Vehicles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, v)
}

func (h *VehicleHandler) addAvailability(w http.ResponseWriter, r *http.Request) {
	var in domain.AvailabilityBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		response.BadRequest(w, "start_date and end_date are required")
		return
	}

	block, err := h.Vehicles.AddAvailabilityBlock(r.Context(), chi.URLParam(r, "id"), middleware.Claims(r).Sub, &in)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, block)
}
