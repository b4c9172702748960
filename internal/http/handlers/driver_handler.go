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

// DriverHandler is the driver app surface: see assigned trips and advance them.
type DriverHandler struct {
	Assignments service.AssignmentService
}

func NewDriverHandler(assignments service.AssignmentService) *DriverHandler {
	return &DriverHandler{Assignments: assignments}
}

func (h *DriverHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/assignments", h.list)
	r.Get("/assignments/{id}", h.getByID)
	r.Patch("/assignments/{id}/status", h.updateStatus)
	return r
}

func (h *DriverHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	assignments, err := h.Assignments.ListForDriver(r.Context(), middleware.Claims(r).Sub, limit, offset)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"assignments": assignments})
}

func (h *DriverHandler) getByID(w http.ResponseWriter, r *http.Request) {
	a, err := h.Assignments.Get(r.Context(), chi.URLParam(r, "id"), middleware.Claims(r).Sub)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, a)
}

func (h *DriverHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var in domain.AssignmentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	to, ok := domain.ParseAssignmentStatus(in.Status)
	if !ok {
		response.BadRequest(w, "status must be accepted, started or completed")
		return
	}

	a, err := h.Assignments.UpdateStatus(r.Context(), chi.URLParam(r, "id"), middleware.Claims(r).Sub, to)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, a)
}
