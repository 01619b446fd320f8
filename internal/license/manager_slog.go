package license

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"qajalicense/internal/config"
	"qajalicense/internal/infrastructure"
)

const lifecycleComponent = "license_lifecycle"

// logAction writes one lifecycle line ("<action> <result>") and mirrors it
// as a span event when the request is traced.
func (m *Manager) logAction(ctx context.Context, level slog.Level, action, result string, attrs ...slog.Attr) {
	if trace.SpanFromContext(ctx).IsRecording() {
		infrastructure.AddSpanEvent(ctx, "license."+action, map[string]interface{}{
			"result":    result,
			"component": lifecycleComponent,
		})
	}

	m.logger.LogAttrs(ctx, level, action+" "+result, append([]slog.Attr{
		slog.String("component", lifecycleComponent),
		slog.String("action", action),
		slog.String("result", result),
		slog.String("trace_id", infrastructure.GetTraceID(ctx)),
	}, attrs...)...)
}

// logLicenseAction is logAction for a single license. The key and the
// customer e-mail never reach the log in clear.
func (m *Manager) logLicenseAction(ctx context.Context, level slog.Level, action, result, licenseKey, email string, attrs ...slog.Attr) {
	masked := maskLicenseKey(licenseKey)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("license.action", action),
		attribute.String("license.result", result),
		attribute.String("license.key_prefix", masked),
	)

	base := []slog.Attr{
		slog.String("license_key_masked", masked),
		slog.String("license_key_hash", hashLicenseKey(licenseKey)),
		slog.String("audit_category", "license_security"),
	}
	if email != "" {
		base = append(base, slog.String("customer_email_masked", maskEmail(email)))
	}
	m.logAction(ctx, level, action, result, append(base, attrs...)...)
}

// maskLicenseKey keeps the first and last group: ABCD-****-****-WXYZ.
func maskLicenseKey(key string) string {
	if groups := strings.Split(key, "-"); len(groups) == config.KeyGroupCount {
		return groups[0] + "-****-****-" + groups[config.KeyGroupCount-1]
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}

// maskEmail keeps the domain and the outer letters of the local part.
func maskEmail(email string) string {
	user, domain, ok := strings.Cut(email, "@")
	switch {
	case email == "":
		return ""
	case !ok:
		return "****"
	case len(user) <= 2:
		return "**@" + domain
	}
	return user[:1] + "****" + user[len(user)-1:] + "@" + domain
}

// hashLicenseKey correlates audit lines for one key without storing it.
func hashLicenseKey(key string) string {
	if key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

func (m *Manager) logInfo(ctx context.Context, action, result string, attrs ...slog.Attr) {
	m.logAction(ctx, slog.LevelInfo, action, result, attrs...)
}

func (m *Manager) logWarn(ctx context.Context, action, result string, attrs ...slog.Attr) {
	m.logAction(ctx, slog.LevelWarn, action, result, attrs...)
}

func (m *Manager) logError(ctx context.Context, action, result string, attrs ...slog.Attr) {
	m.logAction(ctx, slog.LevelError, action, result, attrs...)
}
