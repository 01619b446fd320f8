package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"qajalicense/internal/services"
)

// HealthHandler serves the unauthenticated health endpoints.
type HealthHandler struct {
	service *services.HealthService
	logger  *slog.Logger
}

func NewHealthHandler(service *services.HealthService, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{service: service, logger: logger.With(slog.String("handler", "health"))}
}

type healthCheck func(context.Context) services.HealthStatus

// serve renders the health check result, answering 503 when failing(status) holds.
func (h *HealthHandler) serve(w http.ResponseWriter, r *http.Request, check healthCheck, failing func(string) bool) {
	status := check(r.Context())
	if failing(status.Status) {
		h.logger.WarnContext(r.Context(), "health check failing",
			slog.String("path", r.URL.Path),
			slog.String("status", status.Status))
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, status)
}

// HealthCheck fails only when the license store cannot be read. A degraded
// store still answers 200.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.service.HealthCheck, func(s string) bool { return s == services.StatusUnhealthy })
}

func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.service.ReadinessCheck, func(s string) bool { return s != services.StatusReady })
}

func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.service.LivenessCheck, func(string) bool { return false })
}

func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Version())
}
