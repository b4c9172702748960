package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/malabartours/bookings/internal/http/response"
	"github.com/malabartours/bookings/internal/repo/postgres"
)

// PackageHandler serves the public catalogue.
type PackageHandler struct {
	Packages postgres.PackageRepo
}

func NewPackageHandler(packages postgres.PackageRepo) *PackageHandler {
	return &PackageHandler{Packages: packages}
}

func (h *PackageHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{slug}", h.getBySlug)
	return r
}

func (h *PackageHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	packages, err := h.Packages.ListActive(r.Context(), r.URL.Query().Get("region"), limit, offset)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]any{"packages": packages})
}

func (h *PackageHandler) getBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p, err := h.Packages.GetBySlug(r.Context(), slug)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	if p == nil || !p.IsActive {
		response.NotFound(w, "package not found")
		return
	}
	response.WriteJSON(w, http.StatusOK, p)
}
