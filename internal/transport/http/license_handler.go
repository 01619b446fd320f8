package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apierrors "qajalicense/internal/errors"
	"qajalicense/internal/infrastructure"
	"qajalicense/internal/license"
	"qajalicense/internal/middleware"
	"qajalicense/internal/services"
)

// LicenseHandler serves the public endpoints used by POS clients
type LicenseHandler struct {
	service      services.LicenseService
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewLicenseHandler creates a new license handler
func NewLicenseHandler(service services.LicenseService, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "license")),
	}
}

// Routes returns the public routes
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Root)
	r.Get("/validate", h.Validate)
	return r
}

// Root handles GET /
func (h *LicenseHandler) Root(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, translateError(err))
		return
	}
	render.JSON(w, r, info)
}

// Validate handles GET /validate. The type query parameter is accepted for
// compatibility and ignored; the stored license type decides.
func (h *LicenseHandler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	q := r.URL.Query()

	ctx, span := otel.Tracer("license-handler").Start(ctx, "license_handler.validate",
		trace.WithAttributes(
			attribute.String("http.route", "/validate"),
			attribute.String("request_id", middleware.GetRequestID(ctx)),
			attribute.Bool("customer.supplied", q.Get("customer_email") != "" || q.Get("customer_phone") != "" || q.Get("customer_business") != ""),
		),
	)
	defer span.End()

	result, err := h.service.Validate(ctx, middleware.ClientIP(r), license.ValidateRequest{
		Key:        q.Get("key"),
		HardwareID: q.Get("hardware"),
		Customer: license.CustomerInfo{
			Email:    q.Get("customer_email"),
			Phone:    q.Get("customer_phone"),
			Business: q.Get("customer_business"),
		},
	})
	if err != nil {
		span.RecordError(err)
		h.errorHandler.HandleError(w, r.WithContext(ctx), translateError(err))
		return
	}

	span.SetAttributes(
		attribute.Bool("validation.success", result.Success),
		attribute.String("validation.code", string(result.Code)),
	)
	h.logger.DebugContext(ctx, "validation answered",
		slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)),
		slog.Bool("success", result.Success),
		slog.String("code", string(result.Code)),
		slog.Duration("latency", time.Since(start)))

	render.JSON(w, r, newValidateResponse(result))
}
