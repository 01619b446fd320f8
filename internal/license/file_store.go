package license

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend keeps the document in a JSON file. Writes go to a temporary
// file in the same directory and are renamed into place.
type FileBackend struct {
	path          string
	emergencyPath string
}

// NewFileBackend creates a backend for the document at path, with the
// pre-restore safety copy written to emergencyPath
func NewFileBackend(path, emergencyPath string) *FileBackend {
	return &FileBackend{path: path, emergencyPath: emergencyPath}
}

// Name identifies the backend in logs and metrics
func (b *FileBackend) Name() string { return "file" }

// Path returns the document location
func (b *FileBackend) Path() string { return b.path }

// Read returns the document bytes
func (b *FileBackend) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrDocumentNotFound
	}
	return data, err
}

// Write atomically replaces the document
func (b *FileBackend) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFileAtomic(b.path, data)
}

// WriteEmergency replaces the safety copy
func (b *FileBackend) WriteEmergency(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFileAtomic(b.emergencyPath, data)
}

// Stat describes the document file
func (b *FileBackend) Stat(ctx context.Context) (DocumentInfo, error) {
	if err := ctx.Err(); err != nil {
		return DocumentInfo{}, err
	}
	info, err := os.Stat(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return DocumentInfo{Location: b.path}, nil
	}
	if err != nil {
		return DocumentInfo{}, err
	}
	modified := info.ModTime().UTC()
	return DocumentInfo{
		Exists:     true,
		Size:       info.Size(),
		ModifiedAt: &modified,
		Location:   b.path,
	}, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		cleanup()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
