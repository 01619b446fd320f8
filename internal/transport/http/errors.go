package http

import (
	"errors"
	"net/http"

	apierrors "qajalicense/internal/errors"
	"qajalicense/internal/exporter"
	"qajalicense/internal/services"
)

// translateError maps service sentinels to API errors. Domain failures and
// anything else pass through for the error handler to classify.
func translateError(err error) error {
	switch {
	case errors.Is(err, services.ErrClientBlocked):
		return apierrors.New(http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS",
			"Demasiados intentos con licencias no válidas, intenta más tarde")
	case errors.Is(err, services.ErrMissingQuery):
		return apierrors.NewWithDetails(http.StatusBadRequest, "MISSING_PARAMETER", "Query requerido", "query")
	case errors.Is(err, services.ErrBackupsDisabled):
		return apierrors.New(http.StatusServiceUnavailable, "BACKUPS_DISABLED", "Los backups programados no están configurados")
	case errors.Is(err, exporter.ErrSheetsNotConfigured):
		return apierrors.New(http.StatusServiceUnavailable, "SHEETS_NOT_CONFIGURED", "La exportación a Google Sheets no está configurada")
	}
	return err
}
