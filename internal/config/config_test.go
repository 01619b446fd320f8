package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3000, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
				assert.Equal(t, []string{"*"}, cfg.Security.AllowedOrigins)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, "licenses.json", cfg.Paths.DatabaseFile)
				assert.Equal(t, "emergency_backup.json", cfg.Paths.EmergencyBackupFile)
				assert.Equal(t, StorageDriverFile, cfg.Storage.Driver)
				assert.Equal(t, "@daily", cfg.Backup.Schedule)
				assert.Equal(t, 14, cfg.Backup.Retention)
				assert.False(t, cfg.Backup.S3.Enabled)
				assert.Equal(t, 5*time.Second, cfg.Cache.SnapshotTTL)
				assert.Empty(t, cfg.Storage.EnvSeed)
			},
		},
		{
			name: "custom environment variables",
			env: map[string]string{
				"QAJA_SERVER_PORT":               "9090",
				"QAJA_SERVER_READ_TIMEOUT":       "30s",
				"QAJA_SECURITY_ALLOWED_ORIGINS":  "http://a.example,https://b.example",
				"QAJA_LOGGING_LEVEL":             "debug",
				"QAJA_LOGGING_FORMAT":            "text",
				"QAJA_STORAGE_DRIVER":            "redis",
				"QAJA_BACKUP_S3_ENABLED":         "true",
				"QAJA_BACKUP_S3_BUCKET":          "pos-backups",
				"QAJA_SECURITY_ADMIN_KEY_HASHES": "h1,h2",
				EnvSeedVariable:                  "eyJsaWNlbnNlcyI6e319",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, []string{"http://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, StorageDriverRedis, cfg.Storage.Driver)
				assert.True(t, cfg.Backup.S3.Enabled)
				assert.Equal(t, "pos-backups", cfg.Backup.S3.Bucket)
				assert.Equal(t, []string{"h1", "h2"}, cfg.Security.AdminKeyHashes)
				assert.Equal(t, "eyJsaWNlbnNlcyI6e319", cfg.Storage.EnvSeed)
			},
		},
		{
			name: "file values override defaults",
			file: "server:\n  port: 4000\n  write_timeout: 45s\nbackup:\n  schedule: \"0 3 * * *\"\n  s3:\n    bucket: from-file\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 4000, cfg.Server.Port)
				assert.Equal(t, 45*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, "0 3 * * *", cfg.Backup.Schedule)
				assert.Equal(t, "from-file", cfg.Backup.S3.Bucket)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
			},
		},
		{
			name: "environment overrides file",
			env:  map[string]string{"QAJA_SERVER_PORT": "5000"},
			file: "server:\n  port: 4000\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5000, cfg.Server.Port)
			},
		},
		{
			name:    "invalid port number",
			env:     map[string]string{"QAJA_SERVER_PORT": "99999"},
			wantErr: true,
		},
		{
			name:    "unsupported storage driver",
			env:     map[string]string{"QAJA_STORAGE_DRIVER": "postgres"},
			wantErr: true,
		},
		{
			name:    "s3 enabled without bucket",
			env:     map[string]string{"QAJA_BACKUP_S3_ENABLED": "true"},
			wantErr: true,
		},
		{
			name:    "malformed duration",
			env:     map[string]string{"QAJA_SERVER_READ_TIMEOUT": "soon"},
			wantErr: true,
		},
		{
			name:    "malformed file",
			file:    "server: [unterminated",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				t.Setenv(EnvPrefix+"_CONFIG_FILE", writeConfigFile(t, tt.file))
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, StorageDriverFile, cfg.Storage.Driver)
	assert.Equal(t, "@daily", cfg.Backup.Schedule)
}

func TestValidateNormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "syslog"

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "console", cfg.Logging.Output)
}

func TestResolvePaths(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "elsewhere.json")

	cfg := Default()
	cfg.Paths.DataDir = dir
	cfg.Paths.EmergencyBackupFile = abs

	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "licenses.json"), paths.DatabaseFile)
	assert.Equal(t, abs, paths.EmergencyBackupFile)
	assert.Equal(t, filepath.Join(dir, "backups"), paths.BackupDir)
	assert.Equal(t, filepath.Join(dir, "logs"), paths.LogsDir)

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.BackupDir)
	assert.DirExists(t, paths.LogsDir)
	assert.False(t, FileExists(paths.DatabaseFile))
	assert.False(t, FileExists(paths.BackupDir))

	require.NoError(t, os.WriteFile(paths.DatabaseFile, []byte("{}"), 0600))
	assert.True(t, FileExists(paths.DatabaseFile))
}
