package license

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newMeteredHarness(t *testing.T) (*harness, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := InitializeLicenseMetrics(provider.Meter(MeterName))
	require.NoError(t, err)

	h := newHarness(t)
	h.store.metrics = metrics
	h.manager.metrics = metrics
	return h, reader
}

func sumCounter(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestLicenseMetricsRecorded(t *testing.T) {
	h, reader := newMeteredHarness(t)
	ctx := context.Background()

	l := h.create(t, CreateRequest{})
	_, err := h.manager.Validate(ctx, ValidateRequest{Key: l.Key, HardwareID: "H1"})
	require.NoError(t, err)
	_, err = h.manager.Validate(ctx, ValidateRequest{Key: "ZZZZ-ZZZZ-ZZZZ-ZZZZ"})
	require.NoError(t, err)
	_, err = h.manager.Renew(ctx, RenewRequest{Key: l.Key, Months: 1})
	require.Error(t, err)

	assert.Equal(t, int64(4), sumCounter(t, reader, "license_operation_attempts_total"))
	assert.Equal(t, int64(1), sumCounter(t, reader, "license_operation_failures_total"))
	assert.Equal(t, int64(2), sumCounter(t, reader, "license_validation_results_total"))
	assert.Equal(t, int64(1), sumCounter(t, reader, "license_store_resets_total"))
	assert.GreaterOrEqual(t, sumCounter(t, reader, "license_store_saves_total"), int64(3))
}

func TestClassifyLicenseError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{Fail(CodeInvalidKey), "INVALID_KEY"},
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{errors.New("disk full"), "storage_error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyLicenseError(tt.err))
	}
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "ABCD-****-****-WXYZ", maskLicenseKey("ABCD-EFGH-IJKL-WXYZ"))
	assert.Equal(t, "ABCD****WXYZ", maskLicenseKey("ABCDEFGHWXYZ"))
	assert.Equal(t, "****", maskLicenseKey("SHORT"))
	assert.Equal(t, "a****a@shop.com", maskEmail("ana@shop.com"))
	assert.Equal(t, "**@shop.com", maskEmail("al@shop.com"))
	assert.Equal(t, "****", maskEmail("not-an-email"))
	assert.Len(t, hashLicenseKey("ABCD-EFGH-IJKL-WXYZ"), 16)
	assert.Empty(t, hashLicenseKey(""))
}
