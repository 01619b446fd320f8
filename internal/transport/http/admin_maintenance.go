package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"qajalicense/internal/config"
	apierrors "qajalicense/internal/errors"
	"qajalicense/internal/services"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// ExportCustomersCSV handles GET /admin/export-customers
func (h *AdminHandler) ExportCustomersCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := h.service.ExportCSV(r.Context(), &buf); err != nil {
		h.fail(w, r, apierrors.NewExportError("customer csv export failed", err))
		return
	}
	attachment(w, contentTypeCSV, config.CustomerCSVName, buf.Bytes())
}

// ExportCustomersXLSX handles GET /admin/export-customers.xlsx
func (h *AdminHandler) ExportCustomersXLSX(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := h.service.ExportXLSX(r.Context(), &buf); err != nil {
		h.fail(w, r, apierrors.NewExportError("customer workbook export failed", err))
		return
	}
	attachment(w, contentTypeXLSX, config.CustomerXLSXName, buf.Bytes())
}

// PublishCustomersSheets handles POST /admin/export-customers/sheets
func (h *AdminHandler) PublishCustomersSheets(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.PublishSheets(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success":        true,
		"message":        "Clientes exportados a Google Sheets",
		"spreadsheet_id": result.SpreadsheetID,
		"range":          result.Range,
		"rows":           result.Rows,
	})
}

// BackupDatabase handles GET /admin/backup-database
func (h *AdminHandler) BackupDatabase(w http.ResponseWriter, r *http.Request) {
	backup, err := h.service.Backup(r.Context(), r.Host)
	if err != nil {
		h.fail(w, r, apierrors.NewBackupError("Error creando backup", err))
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", config.BackupDownloadName))
	render.JSON(w, r, backup)
}

// RestoreDatabase handles POST /admin/restore-database
func (h *AdminHandler) RestoreDatabase(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.service.Restore(r.Context(), req.BackupData, req.Confirm)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var backupInfo interface{} = "No disponible"
	if result.BackupInfo != nil {
		backupInfo = result.BackupInfo
	}

	h.logger.WarnContext(r.Context(), "license document replaced from backup",
		slog.Int("restored_licenses", result.RestoredLicenses))

	render.JSON(w, r, map[string]interface{}{
		"success":           true,
		"message":           "Base de datos restaurada exitosamente",
		"restored_licenses": result.RestoredLicenses,
		"backup_info":       backupInfo,
		"timestamp":         result.Timestamp,
	})
}

// VerifyDatabase handles GET /admin/verify-database
func (h *AdminHandler) VerifyDatabase(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.VerifyIntegrity(r.Context())
	if err != nil {
		h.fail(w, r, apierrors.NewStorageError("Error verificando base de datos", err).
			WithContext("recommendation", "CRÍTICO: Crear backup inmediatamente"))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success":        true,
		"healthy":        report.Healthy,
		"checks":         report.Checks,
		"recommendation": report.Recommendation,
	})
}

// SaveToEnv handles POST /admin/save-to-env
func (h *AdminHandler) SaveToEnv(w http.ResponseWriter, r *http.Request) {
	env, err := h.service.EncodeForEnvironment(r.Context())
	if err != nil {
		h.fail(w, r, apierrors.NewBackupError("Error preparando backup", err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success":            true,
		"message":            "Datos preparados para variable de entorno",
		"env_variable_name":  env.VariableName,
		"env_variable_value": env.Value,
		"instructions": []string{
			"1. Copiar el valor de env_variable_value",
			fmt.Sprintf("2. Crear la variable %s en la configuración del servicio", env.VariableName),
			"3. Reiniciar el servicio",
		},
		"size_mb": env.SizeMB,
	})
}

// RunBackup handles POST /admin/backups/run
func (h *AdminHandler) RunBackup(w http.ResponseWriter, r *http.Request) {
	result, err := h.backups.RunNow(r.Context())
	if result == nil {
		if err == nil {
			err = fmt.Errorf("backup produced no result")
		}
		h.fail(w, r, backupFailure(err))
		return
	}

	if err != nil {
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, map[string]interface{}{
			"success": false,
			"message": "Backup incompleto",
			"code":    "BACKUP_PARTIAL_FAILURE",
			"error":   err.Error(),
			"result":  result,
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success": true,
		"message": "Backup completado",
		"result":  result,
	})
}

func backupFailure(err error) error {
	if translated := translateError(err); translated != err {
		return translated
	}
	return apierrors.NewBackupError("Error ejecutando backup", err)
}

// BackupStatus handles GET /admin/backups/status
func (h *AdminHandler) BackupStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"success":   true,
		"backups":   h.backups.Status(),
		"timestamp": time.Now().UTC(),
	})
}

// StopAutoBackup handles POST /admin/stop-auto-backup
func (h *AdminHandler) StopAutoBackup(w http.ResponseWriter, r *http.Request) {
	stopped, err := h.backups.Stop(r.Context())
	if err != nil && !errors.Is(err, services.ErrBackupsDisabled) {
		h.fail(w, r, backupFailure(err))
		return
	}

	if !stopped {
		render.JSON(w, r, map[string]interface{}{
			"success": false,
			"message": "Auto-backup no estaba activo",
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"success": true,
		"message": "Auto-backup detenido",
	})
}
