package errors

import (
	"fmt"
	"net/http"
)

// ErrorType classifies infrastructure failures behind a license operation.
type ErrorType string

const (
	// ErrTypeStorage covers the license document: file, redis and env backup.
	ErrTypeStorage ErrorType = "STORAGE"
	// ErrTypeBackup covers snapshot delivery to file or S3 sinks.
	ErrTypeBackup ErrorType = "BACKUP"
	// ErrTypeExport covers CSV, XLSX and Google Sheets exports.
	ErrTypeExport ErrorType = "EXPORT"
)

func (t ErrorType) status() (int, string) {
	switch t {
	case ErrTypeBackup:
		return http.StatusInternalServerError, TypeBackup
	case ErrTypeExport:
		return http.StatusBadGateway, TypeExport
	default:
		return http.StatusInternalServerError, TypeStorage
	}
}

// AppError wraps an infrastructure failure with the context an operator
// needs to act on it. Context is rendered into the problem response.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%s] %s", e.Type, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key to the error and returns it for chaining.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = map[string]interface{}{}
	}
	e.Context[key] = value
	return e
}

func newAppError(t ErrorType, message string, cause error) *AppError {
	return &AppError{Type: t, Message: message, Cause: cause}
}

func NewStorageError(message string, cause error) *AppError {
	return newAppError(ErrTypeStorage, message, cause)
}

func NewBackupError(message string, cause error) *AppError {
	return newAppError(ErrTypeBackup, message, cause)
}

func NewExportError(message string, cause error) *AppError {
	return newAppError(ErrTypeExport, message, cause)
}
