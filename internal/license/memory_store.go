package license

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps the document in process memory. WriteErr and
// EmergencyErr, when set, are returned by the corresponding writes.
type MemoryBackend struct {
	mu        sync.Mutex
	data      []byte
	emergency []byte
	modified  time.Time

	WriteErr     error
	EmergencyErr error
}

// NewMemoryBackend creates a backend holding data, which may be nil
func NewMemoryBackend(data []byte) *MemoryBackend {
	b := &MemoryBackend{}
	if data != nil {
		b.data = append([]byte(nil), data...)
		b.modified = time.Now().UTC()
	}
	return b
}

// Name identifies the backend in logs and metrics
func (b *MemoryBackend) Name() string { return "memory" }

// Read returns a copy of the document bytes
func (b *MemoryBackend) Read(_ context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return nil, ErrDocumentNotFound
	}
	return append([]byte(nil), b.data...), nil
}

// Write replaces the document
func (b *MemoryBackend) Write(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.WriteErr != nil {
		return b.WriteErr
	}
	b.data = append([]byte(nil), data...)
	b.modified = time.Now().UTC()
	return nil
}

// WriteEmergency replaces the safety copy
func (b *MemoryBackend) WriteEmergency(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.EmergencyErr != nil {
		return b.EmergencyErr
	}
	b.emergency = append([]byte(nil), data...)
	return nil
}

// Emergency returns the last safety copy, or nil
func (b *MemoryBackend) Emergency() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.emergency == nil {
		return nil
	}
	return append([]byte(nil), b.emergency...)
}

// Stat describes the held document
func (b *MemoryBackend) Stat(_ context.Context) (DocumentInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.data == nil {
		return DocumentInfo{Location: "memory"}, nil
	}
	modified := b.modified
	return DocumentInfo{
		Exists:     true,
		Size:       int64(len(b.data)),
		ModifiedAt: &modified,
		Location:   "memory",
	}, nil
}
