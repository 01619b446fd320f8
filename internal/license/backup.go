package license

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"qajalicense/internal/config"
)

// BackupInfo is the metadata wrapped around an exported document
type BackupInfo struct {
	CreatedAt     time.Time `json:"created_at"`
	Version       string    `json:"version"`
	TotalLicenses int       `json:"total_licenses"`
	ServerURL     string    `json:"server_url,omitempty"`
}

// Backup is the export format of the license document. Database holds the
// document verbatim so that restoring a snapshot reproduces it exactly.
type Backup struct {
	BackupInfo *BackupInfo     `json:"backup_info,omitempty"`
	Database   json.RawMessage `json:"database"`
}

// EmergencyBackup is the safety copy written before every restore
type EmergencyBackup struct {
	CreatedAt time.Time `json:"created_at"`
	Type      string    `json:"type"`
	Data      *Database `json:"data"`
}

const emergencyBackupType = "emergency_backup_before_restore"

// RestoreResult describes a committed restore
type RestoreResult struct {
	RestoredLicenses int
	BackupInfo       *BackupInfo
	Timestamp        time.Time
}

// IntegrityChecks are the individual findings of VerifyIntegrity
type IntegrityChecks struct {
	Backend           string     `json:"backend"`
	FileExists        bool       `json:"file_exists"`
	StructureValid    bool       `json:"structure_valid"`
	TotalLicenses     int        `json:"total_licenses"`
	ActivatedLicenses int        `json:"activated_licenses"`
	FileSize          int64      `json:"file_size"`
	LastModified      *time.Time `json:"last_modified"`
	Issues            []string   `json:"issues"`
}

// IntegrityReport is the result of VerifyIntegrity
type IntegrityReport struct {
	Healthy        bool            `json:"healthy"`
	Checks         IntegrityChecks `json:"checks"`
	Recommendation string          `json:"recommendation"`
}

// EnvironmentBackup is the document encoded for an environment variable
type EnvironmentBackup struct {
	VariableName string
	Value        string
	SizeMB       string
}

// Snapshot wraps the current document with export metadata. It never mutates
// the document beyond the self-healing performed by Load.
func (s *Store) Snapshot(ctx context.Context, serverURL string) (*Backup, error) {
	s.mu.Lock()
	db, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(db)
	if err != nil {
		return nil, fmt.Errorf("failed to encode license document: %w", err)
	}

	return &Backup{
		BackupInfo: &BackupInfo{
			CreatedAt:     s.now().UTC(),
			Version:       config.BackupFormatVersion,
			TotalLicenses: len(db.Licenses),
			ServerURL:     serverURL,
		},
		Database: data,
	}, nil
}

// Restore replaces the document with the one in backup. The confirmation
// token must match config.RestoreConfirmationToken. Once confirmed, the
// current document is copied to the emergency location before the incoming
// one is checked, and the restore is aborted if that copy cannot be written.
func (s *Store) Restore(ctx context.Context, backup *Backup, token string) (*RestoreResult, error) {
	if token != config.RestoreConfirmationToken {
		return nil, Fail(CodeConfirmationRequired)
	}
	if backup == nil || isJSONNull(backup.Database) {
		return nil, Fail(CodeInvalidBackup)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	emergency, err := json.MarshalIndent(EmergencyBackup{
		CreatedAt: s.now().UTC(),
		Type:      emergencyBackupType,
		Data:      current,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode emergency backup: %w", err)
	}
	if err := s.backend.WriteEmergency(ctx, emergency); err != nil {
		s.logger.ErrorContext(ctx, "emergency backup failed, restore aborted", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to write emergency backup: %w", err)
	}
	s.logger.InfoContext(ctx, "emergency backup written",
		slog.Int("licenses", len(current.Licenses)))

	var top map[string]json.RawMessage
	if err := json.Unmarshal(backup.Database, &top); err != nil {
		return nil, Fail(CodeInvalidBackupStructure)
	}
	if isJSONNull(top["licenses"]) || isJSONNull(top["stats"]) {
		return nil, Fail(CodeInvalidBackupStructure)
	}

	restored, err := decodeDatabase(backup.Database)
	if err != nil {
		return nil, Fail(CodeInvalidBackupStructure)
	}

	if err := s.save(ctx, restored); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "license document restored",
		slog.Int("restored_licenses", len(restored.Licenses)),
		slog.Int("previous_licenses", len(current.Licenses)))

	return &RestoreResult{
		RestoredLicenses: len(restored.Licenses),
		BackupInfo:       backup.BackupInfo,
		Timestamp:        s.now().UTC(),
	}, nil
}

// VerifyIntegrity inspects the stored document without modifying it
func (s *Store) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.backend.Stat(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to stat license document: %w", err)
	}

	checks := IntegrityChecks{
		Backend:      s.backend.Name(),
		FileExists:   info.Exists,
		FileSize:     info.Size,
		LastModified: info.ModifiedAt,
		Issues:       []string{},
	}

	if info.Exists {
		data, err := s.backend.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read license document: %w", err)
		}
		inspectDocument(data, &checks)
	} else {
		checks.Issues = append(checks.Issues, "El documento de licencias no existe")
	}

	report := &IntegrityReport{
		Healthy: checks.StructureValid && len(checks.Issues) == 0,
		Checks:  checks,
	}
	if report.Healthy {
		report.Recommendation = "Base de datos en buen estado"
	} else {
		report.Recommendation = "Se recomienda crear backup inmediatamente"
	}
	return report, nil
}

func inspectDocument(data []byte, checks *IntegrityChecks) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		checks.Issues = append(checks.Issues, fmt.Sprintf("El documento no es JSON válido: %v", err))
		return
	}
	checks.StructureValid = !isJSONNull(top["licenses"]) && !isJSONNull(top["stats"])

	var licenses map[string]map[string]any
	if err := json.Unmarshal(top["licenses"], &licenses); err != nil && !isJSONNull(top["licenses"]) {
		checks.Issues = append(checks.Issues, "El campo licenses no es un objeto")
		return
	}

	keys := make([]string, 0, len(licenses))
	for key := range licenses {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	checks.TotalLicenses = len(licenses)
	for _, key := range keys {
		rec := licenses[key]
		if present(rec["activated_at"]) {
			checks.ActivatedLicenses++
		}
		if !present(rec["key"]) || !present(rec["type"]) || !present(rec["created_at"]) {
			checks.Issues = append(checks.Issues, fmt.Sprintf("Licencia %s tiene estructura incompleta", key))
		}
		if recordKey, _ := rec["key"].(string); recordKey != key {
			checks.Issues = append(checks.Issues, fmt.Sprintf("Licencia %s tiene key inconsistente: %v", key, rec["key"]))
		}
	}
}

func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	default:
		return true
	}
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// EncodeForEnvironment returns the document as base64 JSON suitable for
// the seed environment variable
func (s *Store) EncodeForEnvironment(ctx context.Context) (*EnvironmentBackup, error) {
	db, err := s.Read(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(db)
	if err != nil {
		return nil, fmt.Errorf("failed to encode license document: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	return &EnvironmentBackup{
		VariableName: config.EnvSeedVariable,
		Value:        encoded,
		SizeMB:       fmt.Sprintf("%.2f", float64(len(encoded))/1024/1024),
	}, nil
}

// SeedFromEnvironment writes the base64 document in encoded to the backend
// when no usable document exists yet. It reports whether a seed was applied.
func (s *Store) SeedFromEnvironment(ctx context.Context, encoded string) (bool, error) {
	if encoded == "" {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.backend.Stat(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to stat license document: %w", err)
	}
	if info.Exists && info.Size >= config.EnvSeedMinFileSize {
		return false, nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", config.EnvSeedVariable, err)
	}
	db, err := decodeDatabase(raw)
	if err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", config.EnvSeedVariable, err)
	}

	if err := s.save(ctx, db); err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "license document seeded from environment",
		slog.Int("licenses", len(db.Licenses)))
	return true, nil
}
