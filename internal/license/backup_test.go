package license

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qajalicense/internal/config"
)

func seedLicenses(t *testing.T, h *harness) (*License, *License) {
	t.Helper()
	ctx := context.Background()

	perpetual := h.create(t, CreateRequest{CustomerEmail: "ana@shop.com"})
	sub := h.create(t, CreateRequest{Type: "suscripcion", Months: 2})
	_, err := h.manager.Validate(ctx, ValidateRequest{Key: perpetual.Key, HardwareID: "H1"})
	require.NoError(t, err)
	return perpetual, sub
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t)
	seedLicenses(t, h)

	backup, err := h.store.Snapshot(context.Background(), "https://licenses.example.com")
	require.NoError(t, err)

	require.NotNil(t, backup.BackupInfo)
	assert.Equal(t, config.BackupFormatVersion, backup.BackupInfo.Version)
	assert.Equal(t, 2, backup.BackupInfo.TotalLicenses)
	assert.Equal(t, baseTime, backup.BackupInfo.CreatedAt)
	assert.Equal(t, "https://licenses.example.com", backup.BackupInfo.ServerURL)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(backup.Database, &doc))
	assert.Contains(t, doc, "licenses")
	assert.Contains(t, doc, "stats")
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	seedLicenses(t, h)

	original, err := h.store.Load(ctx)
	require.NoError(t, err)

	backup, err := h.store.Snapshot(ctx, "")
	require.NoError(t, err)

	encoded, err := json.Marshal(backup)
	require.NoError(t, err)
	var decoded Backup
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	h.create(t, CreateRequest{})
	h.create(t, CreateRequest{})

	result, err := h.manager.Restore(ctx, &decoded, config.RestoreConfirmationToken)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RestoredLicenses)

	restored, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
	assert.Contains(t, h.events.types(), EventRestored)
}

func TestRestoreWritesEmergencyBackupFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	perpetual, _ := seedLicenses(t, h)

	backup := &Backup{Database: json.RawMessage(`{"licenses":{},"stats":{"total_licenses":0,"active_licenses":0}}`)}
	_, err := h.store.Restore(ctx, backup, config.RestoreConfirmationToken)
	require.NoError(t, err)

	var emergency struct {
		Type string   `json:"type"`
		Data Database `json:"data"`
	}
	require.NoError(t, json.Unmarshal(h.backend.Emergency(), &emergency))
	assert.Equal(t, "emergency_backup_before_restore", emergency.Type)
	assert.Contains(t, emergency.Data.Licenses, perpetual.Key)

	db, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, db.Licenses)
}

func TestRestoreRejections(t *testing.T) {
	valid := json.RawMessage(`{"licenses":{},"stats":{}}`)

	tests := []struct {
		name          string
		backup        *Backup
		token         string
		want          Code
		wantEmergency bool
	}{
		{"missing token", &Backup{Database: valid}, "", CodeConfirmationRequired, false},
		{"wrong token", &Backup{Database: valid}, "yes", CodeConfirmationRequired, false},
		{"nil backup", nil, config.RestoreConfirmationToken, CodeInvalidBackup, false},
		{"null database", &Backup{Database: json.RawMessage(`null`)}, config.RestoreConfirmationToken, CodeInvalidBackup, false},
		{"missing stats", &Backup{Database: json.RawMessage(`{"licenses":{}}`)}, config.RestoreConfirmationToken, CodeInvalidBackupStructure, true},
		{"missing licenses", &Backup{Database: json.RawMessage(`{"stats":{}}`)}, config.RestoreConfirmationToken, CodeInvalidBackupStructure, true},
		{"null licenses", &Backup{Database: json.RawMessage(`{"licenses":null,"stats":{}}`)}, config.RestoreConfirmationToken, CodeInvalidBackupStructure, true},
		{"not an object", &Backup{Database: json.RawMessage(`[1]`)}, config.RestoreConfirmationToken, CodeInvalidBackupStructure, true},
		{"licenses not a map", &Backup{Database: json.RawMessage(`{"licenses":[1],"stats":{}}`)}, config.RestoreConfirmationToken, CodeInvalidBackupStructure, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			perpetual, _ := seedLicenses(t, h)

			_, err := h.manager.Restore(ctx, tt.backup, tt.token)
			assert.True(t, IsCode(err, tt.want), "got %v", err)

			db, err := h.store.Load(ctx)
			require.NoError(t, err)
			assert.Contains(t, db.Licenses, perpetual.Key, "rejected restore must not change the store")
			assert.Equal(t, tt.wantEmergency, h.backend.Emergency() != nil)
		})
	}
}

func TestRestoreAbortsWhenEmergencyBackupFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	perpetual, _ := seedLicenses(t, h)
	h.backend.EmergencyErr = errors.New("read-only filesystem")

	backup := &Backup{Database: json.RawMessage(`{"licenses":{},"stats":{}}`)}
	_, err := h.store.Restore(ctx, backup, config.RestoreConfirmationToken)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only filesystem")

	db, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, db.Licenses, perpetual.Key)
}

func TestVerifyIntegrity(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := newHarness(t)
		seedLicenses(t, h)

		report, err := h.store.VerifyIntegrity(context.Background())
		require.NoError(t, err)

		assert.True(t, report.Healthy)
		assert.True(t, report.Checks.FileExists)
		assert.True(t, report.Checks.StructureValid)
		assert.Equal(t, 2, report.Checks.TotalLicenses)
		assert.Equal(t, 1, report.Checks.ActivatedLicenses)
		assert.Empty(t, report.Checks.Issues)
		assert.Equal(t, "memory", report.Checks.Backend)
		assert.Equal(t, "Base de datos en buen estado", report.Recommendation)
	})

	t.Run("flags broken records without mutating", func(t *testing.T) {
		raw := []byte(`{
			"licenses": {
				"AAAA-AAAA-AAAA-AAAA": {"key": "AAAA-AAAA-AAAA-AAAA", "type": "unica", "created_at": "2025-01-01T00:00:00Z"},
				"BBBB-BBBB-BBBB-BBBB": {"key": "CCCC-CCCC-CCCC-CCCC", "type": "unica", "created_at": "2025-01-01T00:00:00Z"},
				"DDDD-DDDD-DDDD-DDDD": {"key": "DDDD-DDDD-DDDD-DDDD"}
			},
			"stats": {}
		}`)
		backend := NewMemoryBackend(raw)
		store := NewStore(backend)

		report, err := store.VerifyIntegrity(context.Background())
		require.NoError(t, err)

		assert.False(t, report.Healthy)
		assert.True(t, report.Checks.StructureValid)
		assert.Equal(t, 3, report.Checks.TotalLicenses)
		assert.Equal(t, []string{
			"Licencia BBBB-BBBB-BBBB-BBBB tiene key inconsistente: CCCC-CCCC-CCCC-CCCC",
			"Licencia DDDD-DDDD-DDDD-DDDD tiene estructura incompleta",
		}, report.Checks.Issues)
		assert.Equal(t, "Se recomienda crear backup inmediatamente", report.Recommendation)

		after, err := backend.Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, raw, after)
	})

	t.Run("missing document", func(t *testing.T) {
		store := NewStore(NewMemoryBackend(nil))

		report, err := store.VerifyIntegrity(context.Background())
		require.NoError(t, err)
		assert.False(t, report.Healthy)
		assert.False(t, report.Checks.FileExists)
	})

	t.Run("corrupt document is reported, not reset", func(t *testing.T) {
		backend := NewMemoryBackend([]byte(`{"licenses":`))
		store := NewStore(backend)

		report, err := store.VerifyIntegrity(context.Background())
		require.NoError(t, err)
		assert.False(t, report.Healthy)
		assert.False(t, report.Checks.StructureValid)
		assert.Len(t, report.Checks.Issues, 1)

		after, err := backend.Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"licenses":`), after)
	})
}

func TestEncodeForEnvironment(t *testing.T) {
	h := newHarness(t)
	seedLicenses(t, h)

	env, err := h.store.EncodeForEnvironment(context.Background())
	require.NoError(t, err)
	assert.Equal(t, config.EnvSeedVariable, env.VariableName)
	assert.Regexp(t, `^\d+\.\d{2}$`, env.SizeMB)

	raw, err := base64.StdEncoding.DecodeString(env.Value)
	require.NoError(t, err)
	var db Database
	require.NoError(t, json.Unmarshal(raw, &db))
	assert.Len(t, db.Licenses, 2)
}

func TestSeedFromEnvironment(t *testing.T) {
	source := newHarness(t)
	seedLicenses(t, source)
	env, err := source.store.EncodeForEnvironment(context.Background())
	require.NoError(t, err)

	t.Run("seeds an absent document", func(t *testing.T) {
		store := NewStore(NewMemoryBackend(nil))
		applied, err := store.SeedFromEnvironment(context.Background(), env.Value)
		require.NoError(t, err)
		assert.True(t, applied)

		db, err := store.Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, db.Licenses, 2)
	})

	t.Run("seeds a tiny document", func(t *testing.T) {
		store := NewStore(NewMemoryBackend([]byte(`{}`)))
		applied, err := store.SeedFromEnvironment(context.Background(), env.Value)
		require.NoError(t, err)
		assert.True(t, applied)
	})

	t.Run("keeps an existing document", func(t *testing.T) {
		h := newHarness(t)
		seedLicenses(t, h)
		h.create(t, CreateRequest{})

		applied, err := h.store.SeedFromEnvironment(context.Background(), env.Value)
		require.NoError(t, err)
		assert.False(t, applied)

		db, err := h.store.Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, db.Licenses, 3)
	})

	t.Run("empty value is ignored", func(t *testing.T) {
		applied, err := NewStore(NewMemoryBackend(nil)).SeedFromEnvironment(context.Background(), "")
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, err := NewStore(NewMemoryBackend(nil)).SeedFromEnvironment(context.Background(), "!!not-base64!!")
		assert.Error(t, err)
	})
}

func TestSnapshotDoesNotMutate(t *testing.T) {
	h := newHarness(t)
	seedLicenses(t, h)
	before, err := h.backend.Read(context.Background())
	require.NoError(t, err)

	h.clock.Advance(time.Hour)
	_, err = h.store.Snapshot(context.Background(), "")
	require.NoError(t, err)

	after, err := h.backend.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
