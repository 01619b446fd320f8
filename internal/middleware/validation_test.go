package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "qajalicense/internal/errors"
)

type createBody struct {
	Type   string `json:"type" validate:"license_type"`
	Months int    `json:"months" validate:"gte=0,lte=120"`
	Email  string `json:"customer_email" validate:"omitempty,email"`
}

type keyBody struct {
	Key string `json:"key" validate:"required,license_key"`
}

func TestValidatorDecodeJSON(t *testing.T) {
	v, err := NewValidator(1024)
	require.NoError(t, err)

	tests := []struct {
		name      string
		body      string
		dst       func() interface{}
		wantCode  string
		wantField string
	}{
		{name: "valid create", body: `{"type":"suscripcion","months":3}`, dst: func() interface{} { return &createBody{} }},
		{name: "empty body defaults", body: ``, dst: func() interface{} { return &createBody{} }},
		{name: "bad type", body: `{"type":"lifetime"}`, dst: func() interface{} { return &createBody{} }, wantCode: "VALIDATION_FAILED", wantField: "type"},
		{name: "bad email", body: `{"customer_email":"nope"}`, dst: func() interface{} { return &createBody{} }, wantCode: "VALIDATION_FAILED", wantField: "customer_email"},
		{name: "months too high", body: `{"months":500}`, dst: func() interface{} { return &createBody{} }, wantCode: "VALIDATION_FAILED", wantField: "months"},
		{name: "malformed json", body: `{"type":`, dst: func() interface{} { return &createBody{} }, wantCode: "INVALID_REQUEST"},
		{name: "missing key", body: `{}`, dst: func() interface{} { return &keyBody{} }, wantCode: "VALIDATION_FAILED", wantField: "key"},
		{name: "bad key format", body: `{"key":"ABC"}`, dst: func() interface{} { return &keyBody{} }, wantCode: "VALIDATION_FAILED", wantField: "key"},
		{name: "lowercase key accepted", body: `{"key":"ab12-cd34-ef56-gh78"}`, dst: func() interface{} { return &keyBody{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin/x", strings.NewReader(tt.body))
			err := v.DecodeJSON(httptest.NewRecorder(), req, tt.dst())

			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}

			var apiErr *apierrors.APIError
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
			if tt.wantField != "" {
				details, ok := apiErr.Details.(apierrors.ValidationErrors)
				require.True(t, ok)
				require.NotEmpty(t, details.Errors)
				assert.Equal(t, tt.wantField, details.Errors[0].Field)
			}
		})
	}
}

func TestNewValidatorRegistrationFailure(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		wantErr bool
	}{
		{name: "custom tag", tag: "license_key"},
		{name: "empty tag", tag: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := customTags
			t.Cleanup(func() { customTags = saved })
			customTags = append(customTags[:0:0], customTags...)
			customTags[1].tag = tt.tag

			v, err := NewValidator(1024)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, v)
				assert.Contains(t, err.Error(), "failed to register")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, v)
		})
	}
}

func TestValidatorBodyTooLarge(t *testing.T) {
	v, err := NewValidator(16)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/admin/x", strings.NewReader(`{"type":"unica","customer_email":"someone@example.com"}`))

	err = v.DecodeJSON(httptest.NewRecorder(), req, &createBody{})
	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusRequestEntityTooLarge, apiErr.StatusCode)
}

func TestContentTypeValidator(t *testing.T) {
	eh, _ := newErrorHandler(t)
	h := ContentTypeValidator(eh, "application/json")(http.HandlerFunc(okHandler))

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        int
	}{
		{name: "json", method: http.MethodPost, contentType: "application/json; charset=utf-8", body: "{}", want: http.StatusOK},
		{name: "form", method: http.MethodPost, contentType: "text/plain", body: "x", want: http.StatusUnsupportedMediaType},
		{name: "get skipped", method: http.MethodGet, want: http.StatusOK},
		{name: "empty post skipped", method: http.MethodPost, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/admin/x", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
