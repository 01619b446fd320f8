package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"qajalicense/internal/infrastructure"
)

// FileSink writes backups to a local directory and prunes old ones
type FileSink struct {
	dir       string
	retention int
	logger    *slog.Logger
}

// NewFileSink creates a sink writing into dir. A retention below one keeps
// every file.
func NewFileSink(dir string, retention int, logger *slog.Logger) *FileSink {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &FileSink{
		dir:       dir,
		retention: retention,
		logger:    logger.With(slog.String("component", "backup_file_sink")),
	}
}

// Name identifies the sink in results and metrics
func (s *FileSink) Name() string { return "file" }

// Dir returns the target directory
func (s *FileSink) Dir() string { return s.dir }

// Put writes data to dir/name and applies retention
func (s *FileSink) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to finalize backup: %w", err)
	}

	if err := s.prune(); err != nil {
		s.logger.WarnContext(ctx, "backup retention failed", slog.String("error", err.Error()))
	}
	return nil
}

// List returns the stored backup file names, newest first
func (s *FileSink) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), ObjectPrefix) || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	// names embed a sortable UTC timestamp
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (s *FileSink) prune() error {
	if s.retention < 1 {
		return nil
	}
	names, err := s.List()
	if err != nil {
		return err
	}
	if len(names) <= s.retention {
		return nil
	}
	for _, name := range names[s.retention:] {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
		s.logger.Debug("pruned old backup", slog.String("file", name))
	}
	return nil
}
