package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// LicenseFixture describes one record of a license document in its on-disk form
type LicenseFixture struct {
	Key              string
	Type             string
	Active           bool
	CreatedAt        time.Time
	ActivatedAt      *time.Time
	HardwareID       string
	ExpiresAt        *time.Time
	CustomerEmail    string
	CustomerPhone    string
	CustomerBusiness string
}

// DatabaseFixture builds a license document as it is persisted on disk.
// It is intentionally independent of the license package types.
func DatabaseFixture(fixtures ...LicenseFixture) map[string]any {
	licenses := make(map[string]any, len(fixtures))
	activated := 0
	for _, f := range fixtures {
		rec := map[string]any{
			"key":               f.Key,
			"type":              f.Type,
			"active":            f.Active,
			"created_at":        f.CreatedAt.UTC().Format(time.RFC3339Nano),
			"customer_email":    f.CustomerEmail,
			"customer_phone":    f.CustomerPhone,
			"customer_business": f.CustomerBusiness,
			"activated_at":      nil,
			"hardware_id":       nil,
			"last_validation":   nil,
		}
		if f.ActivatedAt != nil {
			rec["activated_at"] = f.ActivatedAt.UTC().Format(time.RFC3339Nano)
			activated++
		}
		if f.HardwareID != "" {
			rec["hardware_id"] = f.HardwareID
		}
		if f.ExpiresAt != nil {
			rec["expires_at"] = f.ExpiresAt.UTC().Format(time.RFC3339Nano)
		}
		licenses[f.Key] = rec
	}

	return map[string]any{
		"licenses":    licenses,
		"activations": map[string]any{},
		"stats": map[string]any{
			"total_licenses":  len(fixtures),
			"active_licenses": activated,
			"created_at":      time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
}

// WriteJSONFile marshals v to dir/name and returns the full path
func WriteJSONFile(t *testing.T, dir, name string, v any) string {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// TimePtr returns a pointer to t
func TimePtr(t time.Time) *time.Time {
	return &t
}
