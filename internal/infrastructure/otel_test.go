package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"qajalicense/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelRejectsUnknownExporters(t *testing.T) {
	cfg := OTelConfigFrom(config.Default().Telemetry)
	cfg.TraceExporter = "jaeger"
	_, err := InitializeOTel(cfg, discardLogger())
	assert.Error(t, err)

	cfg = OTelConfigFrom(config.Default().Telemetry)
	cfg.MetricExporter = "statsd"
	_, err = InitializeOTel(cfg, discardLogger())
	assert.Error(t, err)
}

func TestTraceCorrelation(t *testing.T) {
	providers, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := otel.Tracer("test").Start(context.Background(), "test-operation")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)

	// span trace id is used when no explicit id is set
	assert.Equal(t, traceID, GetTraceID(ctx))

	ctx = WithTraceID(ctx, "explicit")
	assert.Equal(t, "explicit", GetTraceID(ctx))

	AddSpanEvent(ctx, "test.event", map[string]interface{}{"n": 1, "ok": true, "f": 1.5, "s": "x", "other": []int{1}})
	RecordError(ctx, errors.New("boom"))
}

func TestBusinessMetricsExposedOnPrometheus(t *testing.T) {
	providers, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.HTTPRequestsTotal.Add(ctx, 1)
	RecordBackupRun(ctx, metrics, "file", 128, 10*time.Millisecond, nil)
	RecordBackupRun(ctx, metrics, "s3", 0, time.Millisecond, errors.New("unreachable"))
	RecordBackupRun(ctx, nil, "file", 1, time.Millisecond, nil)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "http_requests_total"))
	assert.True(t, strings.Contains(body, "license_backup_runs_total"))
}
