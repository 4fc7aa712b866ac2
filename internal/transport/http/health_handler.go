package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"icahtcli/internal/services"
	"icahtcli/pkg/contracts"
)

// HealthHandler serves liveness and version endpoints.
type HealthHandler struct {
	service *services.HealthService
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(service *services.HealthService) *HealthHandler {
	return &HealthHandler{service: service}
}

// Routes returns the health routes.
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Get("/", h.Health)
	r.Get("/version", h.Version)
	return r
}

// Health returns the service health snapshot.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Check())
}

// Version returns build and version metadata.
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, contracts.GetVersionInfo())
}
