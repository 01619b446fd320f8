package license

import (
	"errors"
	"net/http"
	"time"
)

// Code is the machine-readable discriminant of a domain failure
type Code string

const (
	CodeMissingKey             Code = "MISSING_KEY"
	CodeInvalidKey             Code = "INVALID_KEY"
	CodeInactiveLicense        Code = "INACTIVE_LICENSE"
	CodeHardwareMismatch       Code = "HARDWARE_MISMATCH"
	CodeSubscriptionExpired    Code = "SUBSCRIPTION_EXPIRED"
	CodeInvalidLicenseType     Code = "INVALID_LICENSE_TYPE"
	CodeNotSubscription        Code = "NOT_SUBSCRIPTION"
	CodeInvalidMonths          Code = "INVALID_MONTHS"
	CodeConfirmationRequired   Code = "CONFIRMATION_REQUIRED"
	CodeInvalidBackup          Code = "INVALID_BACKUP"
	CodeInvalidBackupStructure Code = "INVALID_BACKUP_STRUCTURE"
)

var codeMessages = map[Code]string{
	CodeMissingKey:             "License key requerida",
	CodeInvalidKey:             "Licencia no encontrada",
	CodeInactiveLicense:        "Licencia desactivada",
	CodeHardwareMismatch:       "Licencia ya está en uso en otro equipo",
	CodeSubscriptionExpired:    "Suscripción expirada",
	CodeInvalidLicenseType:     "Tipo de licencia no válido",
	CodeNotSubscription:        "Solo se pueden renovar suscripciones",
	CodeInvalidMonths:          "La cantidad de meses debe ser mayor a cero",
	CodeConfirmationRequired:   `Para confirmar restauración, envía: {"confirm": "RESTORE_CONFIRMED", "backup_data": {...}}`,
	CodeInvalidBackup:          "Datos de backup inválidos",
	CodeInvalidBackupStructure: "Estructura de backup inválida - faltan campos obligatorios",
}

var codeStatus = map[Code]int{
	CodeMissingKey:             http.StatusBadRequest,
	CodeInvalidKey:             http.StatusNotFound,
	CodeInactiveLicense:        http.StatusForbidden,
	CodeHardwareMismatch:       http.StatusForbidden,
	CodeSubscriptionExpired:    http.StatusForbidden,
	CodeInvalidLicenseType:     http.StatusBadRequest,
	CodeNotSubscription:        http.StatusConflict,
	CodeInvalidMonths:          http.StatusBadRequest,
	CodeConfirmationRequired:   http.StatusBadRequest,
	CodeInvalidBackup:          http.StatusBadRequest,
	CodeInvalidBackupStructure: http.StatusUnprocessableEntity,
}

// Message returns the client-facing text for the code
func (c Code) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return string(c)
}

// OperationError is a recoverable domain failure
type OperationError struct {
	code Code
}

// Fail returns the domain failure for code
func Fail(code Code) *OperationError {
	return &OperationError{code: code}
}

func (e *OperationError) Error() string { return e.code.Message() }

// Code returns the failure discriminant
func (e *OperationError) Code() string { return string(e.code) }

// HTTPStatus returns the status admin endpoints respond with
func (e *OperationError) HTTPStatus() int {
	if s, ok := codeStatus[e.code]; ok {
		return s
	}
	return http.StatusBadRequest
}

// Is matches any OperationError carrying the same code
func (e *OperationError) Is(target error) bool {
	var other *OperationError
	if errors.As(target, &other) {
		return other.code == e.code
	}
	return false
}

// IsCode reports whether err is a domain failure with the given code
func IsCode(err error, code Code) bool {
	return errors.Is(err, Fail(code))
}

// Outcome distinguishes the successful validation paths
type Outcome string

const (
	OutcomeActivated Outcome = "ACTIVATED"
	OutcomeValid     Outcome = "VALID"
)

// ValidationResult is the answer to a validate call. Failures are carried
// in Code rather than returned as errors.
type ValidationResult struct {
	Success            bool
	Outcome            Outcome
	Code               Code
	Message            string
	LicenseType        LicenseType
	ActivatedAt        *time.Time
	ExpiresAt          *time.Time
	ExpiredAt          *time.Time
	DaysRemaining      int
	CustomerRegistered bool
	Customer           CustomerInfo
}

func failedValidation(code Code) *ValidationResult {
	return &ValidationResult{Code: code, Message: code.Message()}
}

// RenewalResult describes a completed renewal
type RenewalResult struct {
	License       *License
	NewExpiration time.Time
	MonthsAdded   int
	RenewalCount  int
}

// NotificationResult describes a recorded expiration reminder
type NotificationResult struct {
	CustomerEmail     string
	CustomerPhone     string
	NotificationCount int
}
