package license

import (
	"context"
	"time"
)

// EventType names a license lifecycle event
type EventType string

const (
	EventCreated     EventType = "license.created"
	EventActivated   EventType = "license.activated"
	EventValidated   EventType = "license.validated"
	EventRenewed     EventType = "license.renewed"
	EventDeactivated EventType = "license.deactivated"
	EventNotified    EventType = "license.notified"
	EventRestored    EventType = "database.restored"
)

// Event is published after a lifecycle change has been persisted
type Event struct {
	Type EventType              `json:"type"`
	Key  string                 `json:"key,omitempty"`
	At   time.Time              `json:"at"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventPublisher receives lifecycle events. Publish must not block.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) {}
