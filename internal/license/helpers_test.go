package license

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"qajalicense/internal/shared/testutil"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// sequenceKeys hands out keys from a fixed list, then numbered ones
type sequenceKeys struct {
	mu   sync.Mutex
	keys []string
	n    int
}

func (s *sequenceKeys) Generate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.keys) > 0 {
		k := s.keys[0]
		s.keys = s.keys[1:]
		return k, nil
	}
	s.n++
	return fmt.Sprintf("TEST-0000-0000-%04d", s.n), nil
}

var baseTime = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	backend *MemoryBackend
	store   *Store
	manager *Manager
	clock   *testClock
	logs    *testutil.LogRecorder
	events  *recordingPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger, logs := testutil.NewTestLogger(t)
	clock := newTestClock(baseTime)
	backend := NewMemoryBackend(nil)
	store := NewStore(backend, WithStoreClock(clock.Now), WithStoreLogger(logger))
	events := &recordingPublisher{}
	manager := NewManager(store,
		WithClock(clock.Now),
		WithLogger(logger),
		WithKeyGenerator(&sequenceKeys{}),
		WithEventPublisher(events),
	)

	return &harness{
		backend: backend,
		store:   store,
		manager: manager,
		clock:   clock,
		logs:    logs,
		events:  events,
	}
}

func (h *harness) create(t *testing.T, req CreateRequest) *License {
	t.Helper()
	l, err := h.manager.Create(context.Background(), req)
	require.NoError(t, err)
	return l
}

func (h *harness) license(t *testing.T, key string) *License {
	t.Helper()
	db, err := h.store.Load(context.Background())
	require.NoError(t, err)
	l, ok := db.Licenses[key]
	require.True(t, ok, "license %s not found", key)
	return l
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
