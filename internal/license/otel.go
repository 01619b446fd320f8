package license

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"qajalicense/internal/infrastructure"
)

const (
	TracerName = "license-lifecycle"
	MeterName  = "license-lifecycle"
)

// LicenseMetrics holds the license-specific OpenTelemetry instruments
type LicenseMetrics struct {
	// Lifecycle metrics
	OperationAttempts metric.Int64Counter
	OperationFailures metric.Int64Counter
	OperationDuration metric.Float64Histogram

	// Validation outcomes by result code
	ValidationResults metric.Int64Counter

	// Store metrics
	StoreSaves        metric.Int64Counter
	StoreSaveFailures metric.Int64Counter
	StoreDocumentSize metric.Int64Histogram
	StoreSaveDuration metric.Float64Histogram
	StoreResets       metric.Int64Counter

	// Document cache metrics
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter
}

// InitializeLicenseMetrics creates all license-specific metrics
func InitializeLicenseMetrics(meter metric.Meter) (*LicenseMetrics, error) {
	metrics := &LicenseMetrics{}

	var err error

	metrics.OperationAttempts, err = meter.Int64Counter(
		"license_operation_attempts_total",
		metric.WithDescription("Total number of license lifecycle operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation attempts counter: %w", err)
	}

	metrics.OperationFailures, err = meter.Int64Counter(
		"license_operation_failures_total",
		metric.WithDescription("Total number of failed license lifecycle operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation failures counter: %w", err)
	}

	metrics.OperationDuration, err = meter.Float64Histogram(
		"license_operation_duration_seconds",
		metric.WithDescription("License lifecycle operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation duration histogram: %w", err)
	}

	metrics.ValidationResults, err = meter.Int64Counter(
		"license_validation_results_total",
		metric.WithDescription("License validations by outcome or failure code"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation results counter: %w", err)
	}

	metrics.StoreSaves, err = meter.Int64Counter(
		"license_store_saves_total",
		metric.WithDescription("Total number of license document writes"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store saves counter: %w", err)
	}

	metrics.StoreSaveFailures, err = meter.Int64Counter(
		"license_store_save_failures_total",
		metric.WithDescription("Total number of failed license document writes"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store save failures counter: %w", err)
	}

	metrics.StoreDocumentSize, err = meter.Int64Histogram(
		"license_store_document_bytes",
		metric.WithDescription("Size of the written license document"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create document size histogram: %w", err)
	}

	metrics.StoreSaveDuration, err = meter.Float64Histogram(
		"license_store_save_duration_seconds",
		metric.WithDescription("License document write duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create save duration histogram: %w", err)
	}

	metrics.StoreResets, err = meter.Int64Counter(
		"license_store_resets_total",
		metric.WithDescription("Times the license document was reinitialized as empty"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store resets counter: %w", err)
	}

	metrics.CacheHits, err = meter.Int64Counter(
		"license_document_cache_hits_total",
		metric.WithDescription("Total number of license document cache hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache hits counter: %w", err)
	}

	metrics.CacheMisses, err = meter.Int64Counter(
		"license_document_cache_misses_total",
		metric.WithDescription("Total number of license document cache misses"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache misses counter: %w", err)
	}

	return metrics, nil
}

// traceOperation wraps a lifecycle operation with a span and records its metrics
func (m *Manager) traceOperation(ctx context.Context, operation, licenseKey string, fn func(ctx context.Context) error) error {
	tracer := otel.Tracer(TracerName)

	attrs := []attribute.KeyValue{
		attribute.String("license.operation", operation),
		attribute.String("component", "license_lifecycle"),
	}
	if licenseKey != "" {
		attrs = append(attrs, attribute.String("license.key_prefix", maskLicenseKey(licenseKey)))
	}

	ctx, span := tracer.Start(ctx, "license."+operation, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	m.recordOperationMetrics(ctx, operation, duration, err)

	span.SetAttributes(
		attribute.Float64("license.duration_ms", float64(duration.Milliseconds())),
		attribute.Bool("license.success", err == nil),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("license.error_type", classifyLicenseError(err)))
	} else {
		span.SetStatus(codes.Ok, "")
		if licenseKey != "" {
			infrastructure.AddSpanEvent(ctx, "license."+operation+".success", map[string]interface{}{
				"license_key_hash": hashLicenseKey(licenseKey),
				"audit_category":   "license_security",
			})
		}
	}

	return err
}

// traceValidation wraps validation with tracing. Failed validations are
// results rather than errors, so the span status follows the result code.
func (m *Manager) traceValidation(ctx context.Context, licenseKey string, fn func(ctx context.Context) (*ValidationResult, error)) (*ValidationResult, error) {
	tracer := otel.Tracer(TracerName)

	ctx, span := tracer.Start(ctx, "license.validation",
		trace.WithAttributes(
			attribute.String("license.operation", "validation"),
			attribute.String("license.key_prefix", maskLicenseKey(licenseKey)),
			attribute.String("component", "license_lifecycle"),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := fn(ctx)
	duration := time.Since(start)

	m.recordOperationMetrics(ctx, "validation", duration, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	outcome := string(result.Outcome)
	if !result.Success {
		outcome = string(result.Code)
		span.SetStatus(codes.Error, "license validation failed")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(
		attribute.Bool("license.valid", result.Success),
		attribute.String("license.outcome", outcome),
	)
	if m.metrics != nil {
		m.metrics.ValidationResults.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}

	return result, nil
}

func (m *Manager) recordOperationMetrics(ctx context.Context, operation string, duration time.Duration, err error) {
	if m.metrics == nil {
		return
	}

	labels := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("component", "license_lifecycle"),
	)

	m.metrics.OperationAttempts.Add(ctx, 1, labels)
	m.metrics.OperationDuration.Record(ctx, duration.Seconds(), labels)
	if err != nil {
		m.metrics.OperationFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("error_type", classifyLicenseError(err)),
		))
	}
}

func (lm *LicenseMetrics) recordStoreSave(ctx context.Context, backend string, size int, duration time.Duration, err error) {
	labels := metric.WithAttributes(attribute.String("backend", backend))
	lm.StoreSaves.Add(ctx, 1, labels)
	lm.StoreSaveDuration.Record(ctx, duration.Seconds(), labels)
	if err != nil {
		lm.StoreSaveFailures.Add(ctx, 1, labels)
		return
	}
	lm.StoreDocumentSize.Record(ctx, int64(size), labels)
}

func (lm *LicenseMetrics) recordStoreReset(ctx context.Context, backend string) {
	lm.StoreResets.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", backend)))
}

func (lm *LicenseMetrics) recordCacheLookup(ctx context.Context, hit bool) {
	if hit {
		lm.CacheHits.Add(ctx, 1)
		return
	}
	lm.CacheMisses.Add(ctx, 1)
}

// classifyLicenseError categorizes lifecycle errors for observability
func classifyLicenseError(err error) string {
	if err == nil {
		return ""
	}

	var opErr *OperationError
	switch {
	case errors.As(err, &opErr):
		return string(opErr.Code())
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "storage_error"
	}
}
