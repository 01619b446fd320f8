package errors

import (
	"fmt"
	"net/http"
)

// Request-level codes rendered in the "code" field of a problem response.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeMissingParameter = "MISSING_PARAMETER"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeRateLimited      = "RATE_LIMIT_EXCEEDED"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
)

// APIError is a failure detected at the HTTP boundary, before any license
// operation runs: undecodable bodies, missing query parameters, bad keys.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) problemType() string {
	switch e.ErrorCode {
	case CodeValidationFailed, CodeInvalidRequest, CodeMissingParameter:
		return TypeValidation
	case CodeUnauthorized:
		return TypeUnauthorized
	case CodeRateLimited:
		return TypeRateLimit
	}
	switch e.StatusCode {
	case http.StatusNotFound:
		return TypeNotFound
	case http.StatusServiceUnavailable:
		return TypeServiceDown
	}
	return TypeInternal
}

// ValidationError names one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the details payload of a VALIDATION_FAILED problem.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{StatusCode: statusCode, ErrorCode: errorCode, Message: message}
}

func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	e := New(statusCode, errorCode, message)
	e.Details = details
	return e
}

var (
	ErrUnauthorized      = New(http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded")
)

// InvalidRequestWithError reports a body that could not be decoded.
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// MissingParameter reports a required field or query parameter that was not supplied.
func MissingParameter(name string) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeMissingParameter, fmt.Sprintf("%s is required", name), name)
}

func NewValidationErrors(fields []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed",
		ValidationErrors{Errors: fields})
}
