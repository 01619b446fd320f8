package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"qajalicense/internal/config"
	apierrors "qajalicense/internal/errors"
	"qajalicense/internal/middleware"
	"qajalicense/internal/services"
)

// AdminHandler serves the administrative API under /admin
type AdminHandler struct {
	service      services.LicenseService
	backups      services.BackupService
	validator    *middleware.Validator
	errorHandler *apierrors.ErrorHandler
	events       http.Handler
	logger       *slog.Logger
}

// AdminOption configures the admin handler
type AdminOption func(*AdminHandler)

// WithEventStream serves handler on GET /events
func WithEventStream(handler http.Handler) AdminOption {
	return func(h *AdminHandler) { h.events = handler }
}

// NewAdminHandler creates the admin handler
func NewAdminHandler(service services.LicenseService, backups services.BackupService, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, logger *slog.Logger, opts ...AdminOption) *AdminHandler {
	h := &AdminHandler{
		service:      service,
		backups:      backups,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "admin")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the admin routes. Authentication is applied by the caller.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Lifecycle
	r.Post("/create-license", h.CreateLicense)
	r.Post("/deactivate", h.Deactivate)
	r.Post("/renew-subscription", h.RenewSubscription)
	r.Post("/notify-expiration", h.NotifyExpiration)

	// Reporting
	r.Get("/customers", h.Customers)
	r.Get("/status", h.Status)
	r.Get("/licenses", h.Licenses)
	r.Get("/expiring-subscriptions", h.ExpiringSubscriptions)
	r.Get("/expired-subscriptions", h.ExpiredSubscriptions)
	r.Get("/search-customer", h.SearchCustomer)

	// Exports
	r.Get("/export-customers", h.ExportCustomersCSV)
	r.Get("/export-customers.xlsx", h.ExportCustomersXLSX)
	r.Post("/export-customers/sheets", h.PublishCustomersSheets)

	// Document maintenance
	r.Get("/backup-database", h.BackupDatabase)
	r.Post("/restore-database", h.RestoreDatabase)
	r.Get("/verify-database", h.VerifyDatabase)
	r.Post("/save-to-env", h.SaveToEnv)

	// Scheduled backups
	r.Post("/backups/run", h.RunBackup)
	r.Get("/backups/status", h.BackupStatus)
	r.Post("/stop-auto-backup", h.StopAutoBackup)

	if h.events != nil {
		r.Get("/events", h.events.ServeHTTP)
	}
	return r
}

func (h *AdminHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.errorHandler.HandleError(w, r, translateError(err))
}

// CreateLicense handles POST /admin/create-license
func (h *AdminHandler) CreateLicense(w http.ResponseWriter, r *http.Request) {
	var req CreateLicenseRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	l, err := h.service.Create(r.Context(), req.toCore())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success": true,
		"message": "Licencia creada exitosamente",
		"license": l,
	})
}

// Deactivate handles POST /admin/deactivate
func (h *AdminHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.service.Deactivate(r.Context(), req.Key); err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success": true,
		"message": "Licencia desactivada exitosamente",
	})
}

// RenewSubscription handles POST /admin/renew-subscription
func (h *AdminHandler) RenewSubscription(w http.ResponseWriter, r *http.Request) {
	var req RenewRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.service.Renew(r.Context(), req.toCore())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success":        true,
		"message":        "Suscripción renovada exitosamente",
		"license_key":    result.License.Key,
		"new_expiration": result.NewExpiration,
		"months_added":   result.MonthsAdded,
		"renewal_count":  result.RenewalCount,
	})
}

// NotifyExpiration handles POST /admin/notify-expiration
func (h *AdminHandler) NotifyExpiration(w http.ResponseWriter, r *http.Request) {
	var req NotifyExpirationRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.service.NotifyExpiration(r.Context(), req.Key, req.NotificationType)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success":            true,
		"message":            "Notificación registrada",
		"customer_email":     result.CustomerEmail,
		"customer_phone":     result.CustomerPhone,
		"notification_count": result.NotificationCount,
	})
}

// Customers handles GET /admin/customers
func (h *AdminHandler) Customers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.Customers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success":         true,
		"total_customers": len(customers),
		"customers":       newCustomerViews(customers),
	})
}

// Status handles GET /admin/status
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Status(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success":            true,
		"stats":              newStatusStats(report),
		"recent_activations": newRecentActivations(report.RecentActivations),
	})
}

// Licenses handles GET /admin/licenses
func (h *AdminHandler) Licenses(w http.ResponseWriter, r *http.Request) {
	licenses, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success":  true,
		"licenses": licenses,
	})
}

// ExpiringSubscriptions handles GET /admin/expiring-subscriptions?days=7
func (h *AdminHandler) ExpiringSubscriptions(w http.ResponseWriter, r *http.Request) {
	days := config.DefaultExpiringWindowDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.fail(w, r, apierrors.NewWithDetails(http.StatusBadRequest, "INVALID_REQUEST",
				"days debe ser un número entero no negativo", "days"))
			return
		}
		days = parsed
	}

	expiring, err := h.service.Expiring(r.Context(), days)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success":          true,
		"expiring_in_days": days,
		"total_expiring":   len(expiring),
		"subscriptions":    newExpiringViews(expiring),
	})
}

// ExpiredSubscriptions handles GET /admin/expired-subscriptions
func (h *AdminHandler) ExpiredSubscriptions(w http.ResponseWriter, r *http.Request) {
	expired, err := h.service.Expired(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success":       true,
		"total_expired": len(expired),
		"subscriptions": newExpiredViews(expired),
	})
}

// SearchCustomer handles GET /admin/search-customer?query=
func (h *AdminHandler) SearchCustomer(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	results, err := h.service.Search(r.Context(), query)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success":       true,
		"query":         query,
		"results_count": len(results),
		"results":       newCustomerViews(results),
	})
}
