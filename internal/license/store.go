package license

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"qajalicense/internal/infrastructure"
)

// ErrDocumentNotFound is returned by a Backend when no document is stored yet
var ErrDocumentNotFound = errors.New("license document not found")

// DocumentInfo describes the stored document without reading it
type DocumentInfo struct {
	Exists     bool
	Size       int64
	ModifiedAt *time.Time
	Location   string
}

// Backend is the medium holding the serialized license document
type Backend interface {
	Name() string
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	WriteEmergency(ctx context.Context, data []byte) error
	Stat(ctx context.Context) (DocumentInfo, error)
}

const documentCacheKey = "document"

// Store owns the license document. Every mutation runs as a single
// load-mutate-save cycle under one mutex.
type Store struct {
	backend Backend
	cache   *DocumentCache
	logger  *slog.Logger
	metrics *LicenseMetrics
	now     func() time.Time

	mu sync.Mutex
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithStoreClock overrides the time source
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithStoreLogger sets the logger
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// WithDocumentCache enables cached reads for reporting paths
func WithDocumentCache(cache *DocumentCache) StoreOption {
	return func(s *Store) { s.cache = cache }
}

// WithStoreMetrics records store resets and saves
func WithStoreMetrics(metrics *LicenseMetrics) StoreOption {
	return func(s *Store) { s.metrics = metrics }
}

// NewStore creates a store on top of backend
func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = infrastructure.GetLogger()
	}
	s.logger = s.logger.With(
		slog.String("component", "license_store"),
		slog.String("backend", backend.Name()),
	)
	return s
}

// Backend returns the underlying medium
func (s *Store) Backend() Backend {
	return s.backend
}

// Load returns the persisted document. A missing or undecodable document is
// replaced by an empty one, which is persisted before returning. Only a
// medium that cannot be read at all yields an error.
func (s *Store) Load(ctx context.Context) (*Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Save serializes db and overwrites the persisted document
func (s *Store) Save(ctx context.Context, db *Database) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, db)
}

// Update runs fn inside one load-mutate-save cycle. The document is written
// only when fn reports a change. Errors from fn are returned unchanged.
func (s *Store) Update(ctx context.Context, fn func(db *Database) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load(ctx)
	if err != nil {
		return err
	}

	changed, err := fn(db)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.save(ctx, db)
}

// Read returns a private copy of the document for read-only use,
// served from the document cache when one is configured.
func (s *Store) Read(ctx context.Context) (*Database, error) {
	if s.cache != nil {
		if data, ok := s.cache.Get(documentCacheKey); ok {
			s.recordCache(ctx, true)
			return decodeDatabase(data)
		}
		s.recordCache(ctx, false)
	}

	// load and cache fill share mu with save's invalidation
	s.mu.Lock()
	defer s.mu.Unlock()
	db, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		data, err := json.Marshal(db)
		if err != nil {
			return nil, fmt.Errorf("failed to encode license document: %w", err)
		}
		s.cache.Set(documentCacheKey, data)
	}
	return db, nil
}

func (s *Store) load(ctx context.Context) (*Database, error) {
	data, err := s.backend.Read(ctx)
	if errors.Is(err, ErrDocumentNotFound) {
		s.logger.WarnContext(ctx, "license document missing, initializing empty document")
		return s.reset(ctx), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read license document: %w", err)
	}

	db, err := decodeDatabase(data)
	if err != nil {
		s.logger.ErrorContext(ctx, "license document corrupt, resetting to empty document",
			slog.String("error", err.Error()),
			slog.Int("discarded_bytes", len(data)),
			slog.Bool("data_loss_risk", true))
		infrastructure.RecordError(ctx, err)
		return s.reset(ctx), nil
	}
	return db, nil
}

func (s *Store) reset(ctx context.Context) *Database {
	db := NewDatabase(s.now())
	if s.metrics != nil {
		s.metrics.recordStoreReset(ctx, s.backend.Name())
	}
	if err := s.save(ctx, db); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist empty license document",
			slog.String("error", err.Error()))
	}
	return db
}

func (s *Store) save(ctx context.Context, db *Database) error {
	start := time.Now()
	data, err := encodeDatabase(db)
	if err != nil {
		return fmt.Errorf("failed to encode license document: %w", err)
	}

	err = s.backend.Write(ctx, data)
	if s.metrics != nil {
		s.metrics.recordStoreSave(ctx, s.backend.Name(), len(data), time.Since(start), err)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to write license document", slog.String("error", err.Error()))
		return fmt.Errorf("failed to write license document: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(documentCacheKey)
	}
	return nil
}

func (s *Store) recordCache(ctx context.Context, hit bool) {
	if s.metrics != nil {
		s.metrics.recordCacheLookup(ctx, hit)
	}
}

func encodeDatabase(db *Database) ([]byte, error) {
	db.normalize()
	return json.MarshalIndent(db, "", "  ")
}

func decodeDatabase(data []byte) (*Database, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.New("empty license document")
	}

	var db Database
	if err := json.Unmarshal(trimmed, &db); err != nil {
		return nil, err
	}
	db.normalize()
	for key, l := range db.Licenses {
		if l == nil {
			delete(db.Licenses, key)
		}
	}
	return &db, nil
}
