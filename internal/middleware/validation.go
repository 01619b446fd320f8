package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "qajalicense/internal/errors"
	"qajalicense/internal/license"
)

// Validator decodes JSON bodies and checks struct tags
type Validator struct {
	validate    *validator.Validate
	maxBodySize int64
}

// customTags are the validation tags understood on top of validator's built-ins.
var customTags = []struct {
	tag string
	fn  validator.Func
}{
	{"license_type", isLicenseType},
	{"license_key", isLicenseKey},
}

// NewValidator creates a validator that reports JSON field names and knows
// the license_type and license_key tags
func NewValidator(maxBodySize int64) (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	for _, c := range customTags {
		if err := v.RegisterValidation(c.tag, c.fn); err != nil {
			return nil, fmt.Errorf("failed to register %q validation: %w", c.tag, err)
		}
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if maxBodySize <= 0 {
		maxBodySize = 10 << 20
	}
	return &Validator{validate: v, maxBodySize: maxBodySize}, nil
}

// DecodeJSON reads r's body into dst and validates it. An empty body
// decodes to the zero value before validation.
func (v *Validator) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, v.maxBodySize)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apierrors.NewWithDetails(
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
				"Request body exceeds maximum allowed size",
				map[string]interface{}{"max_size": v.maxBodySize},
			)
		}
		return apierrors.InvalidRequestWithError(err)
	}

	return v.Struct(dst)
}

// Struct validates a struct and returns an APIError listing every field
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "license_type":
		return fmt.Sprintf("%s must be unica or suscripcion", field)
	case "license_key":
		return fmt.Sprintf("%s must look like XXXX-XXXX-XXXX-XXXX", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func isLicenseType(fl validator.FieldLevel) bool {
	_, ok := license.ParseLicenseType(fl.Field().String())
	return ok
}

func isLicenseKey(fl validator.FieldLevel) bool {
	return license.ValidKeyFormat(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
}

// ContentTypeValidator rejects bodies that are not one of contentTypes
func ContentTypeValidator(errorHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions || r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			for _, allowed := range contentTypes {
				if strings.HasPrefix(contentType, allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				"UNSUPPORTED_MEDIA_TYPE",
				"Unsupported content type",
				map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}
