package license

import (
	"context"
	"log/slog"
	"time"

	"qajalicense/internal/infrastructure"
)

// Manager runs the license lifecycle against a Store
type Manager struct {
	store   *Store
	keys    KeyGenerator
	now     func() time.Time
	logger  *slog.Logger
	metrics *LicenseMetrics
	events  EventPublisher
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithClock overrides the time source used for every lifecycle rule
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithKeyGenerator overrides the key source
func WithKeyGenerator(keys KeyGenerator) ManagerOption {
	return func(m *Manager) { m.keys = keys }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics enables lifecycle metrics
func WithMetrics(metrics *LicenseMetrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// WithEventPublisher sets the receiver of lifecycle events
func WithEventPublisher(events EventPublisher) ManagerOption {
	return func(m *Manager) {
		if events != nil {
			m.events = events
		}
	}
}

// NewManager creates a lifecycle manager over store
func NewManager(store *Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		keys:   RandomKeyGenerator{},
		now:    time.Now,
		events: noopPublisher{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = infrastructure.GetLogger()
	}
	return m
}

// Store returns the underlying store
func (m *Manager) Store() *Store {
	return m.store
}

func (m *Manager) clock() time.Time {
	return m.now().UTC()
}

func (m *Manager) publish(ctx context.Context, eventType EventType, key string, data map[string]interface{}) {
	m.events.Publish(ctx, Event{
		Type: eventType,
		Key:  key,
		At:   m.clock(),
		Data: data,
	})
}
