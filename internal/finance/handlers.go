package finance

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-finance/internal/common"
)

// Handler exposes the admin settings endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the handler under /api/v1/admin/finance. onUpdate wraps the
// mutating route only, e.g. with an audit recorder.
func (h *Handler) Routes(r chi.Router, onUpdate ...func(http.Handler) http.Handler) {
	r.Get("/settings", h.Get)
	r.With(onUpdate...).Put("/settings", h.Update)
	r.Post("/settings/validate", h.Validate)
}

// Get handles GET /settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "finance service not configured", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.service.Current(r.Context())})
}

// Update handles PUT /settings.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "finance service not configured", nil)
		return
	}
	var dto SettingsDTO
	if err := common.DecodeJSON(r, &dto, maxSettingsPayload); err != nil {
		common.WriteError(w, err)
		return
	}
	saved, err := h.service.Update(r.Context(), dto)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": saved})
}

// Validate handles POST /settings/validate. It never persists.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "finance service not configured", nil)
		return
	}
	var dto SettingsDTO
	if err := common.DecodeJSON(r, &dto, maxSettingsPayload); err != nil {
		common.WriteError(w, err)
		return
	}
	settings, err := h.service.Validate(dto)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"valid": true, "settings": settings}})
}
