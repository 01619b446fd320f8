package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved file system locations used by the server.
// Relative entries in PathsConfig are resolved against DataDir.
type Paths struct {
	DataDir             string
	DatabaseFile        string
	EmergencyBackupFile string
	BackupDir           string
	LogsDir             string
}

// ResolvePaths turns the configured paths into absolute locations
func (c *Config) ResolvePaths() (*Paths, error) {
	dataDir, err := filepath.Abs(c.Paths.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory %q: %w", c.Paths.DataDir, err)
	}

	return &Paths{
		DataDir:             dataDir,
		DatabaseFile:        under(dataDir, c.Paths.DatabaseFile),
		EmergencyBackupFile: under(dataDir, c.Paths.EmergencyBackupFile),
		BackupDir:           under(dataDir, c.Backup.LocalDir),
		LogsDir:             under(dataDir, c.Paths.LogsDir),
	}, nil
}

func under(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		filepath.Dir(p.DatabaseFile),
		filepath.Dir(p.EmergencyBackupFile),
		p.BackupDir,
		p.LogsDir,
	}

	logger := slog.Default()

	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("path", dir))
	}

	return nil
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution complete",
		slog.Group("paths",
			slog.String("data_dir", p.DataDir),
			slog.String("database_file", p.DatabaseFile),
			slog.String("emergency_backup_file", p.EmergencyBackupFile),
			slog.String("backup_dir", p.BackupDir),
			slog.String("logs_dir", p.LogsDir),
		),
		slog.Bool("database_exists", FileExists(p.DatabaseFile)),
	)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
