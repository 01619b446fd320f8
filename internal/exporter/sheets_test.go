package exporter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"qajalicense/internal/config"
)

type sheetsCall struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
}

type fakeSheets struct {
	mu     sync.Mutex
	calls  []sheetsCall
	status int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.calls = append(f.calls, sheetsCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"forbidden"}}`))
		return
	}
	if strings.HasSuffix(r.URL.Path, ":clear") {
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-123"}`))
		return
	}
	_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-123","updatedRange":"Customers!A1:G3","updatedRows":3}`))
}

func newTestPublisher(t *testing.T, handler http.Handler) *SheetsPublisher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewSheetsPublisher(context.Background(),
		config.ExportConfig{SheetsSpreadsheetID: "sheet-123", SheetsSheetName: "Customers"},
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return p
}

func TestSheetsPublisher_Publish(t *testing.T) {
	fake := &fakeSheets{}
	p := newTestPublisher(t, fake)

	result, err := p.Publish(context.Background(), sampleCustomers())
	require.NoError(t, err)
	assert.Equal(t, "sheet-123", result.SpreadsheetID)
	assert.Equal(t, "Customers!A1:G3", result.Range)
	assert.Equal(t, 3, result.Rows)

	require.Len(t, fake.calls, 2)

	clearCall := fake.calls[0]
	assert.Equal(t, http.MethodPost, clearCall.Method)
	assert.True(t, strings.HasSuffix(clearCall.Path, ":clear"), clearCall.Path)
	assert.Contains(t, clearCall.Path, "/v4/spreadsheets/sheet-123/values/")

	update := fake.calls[1]
	assert.Equal(t, http.MethodPut, update.Method)
	assert.Contains(t, update.Query, "valueInputOption=RAW")

	values, ok := update.Body["values"].([]interface{})
	require.True(t, ok)
	require.Len(t, values, 3)
	header := values[0].([]interface{})
	assert.Equal(t, "License Key", header[0])
	first := values[1].([]interface{})
	assert.Equal(t, "AB12-CD34-EF56-GH78", first[0])
}

func TestSheetsPublisher_APIError(t *testing.T) {
	p := newTestPublisher(t, &fakeSheets{status: http.StatusForbidden})

	_, err := p.Publish(context.Background(), sampleCustomers())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to clear sheet")
}

func TestNewSheetsPublisher_Validation(t *testing.T) {
	_, err := NewSheetsPublisher(context.Background(), config.ExportConfig{})
	assert.ErrorIs(t, err, ErrSheetsNotConfigured)

	_, err = NewSheetsPublisher(context.Background(), config.ExportConfig{
		SheetsSpreadsheetID: "sheet-123",
		SheetsCredentials:   "/nonexistent/credentials.json",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read sheets credentials")
}
