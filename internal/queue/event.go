// Package queue defines the property lifecycle messages exchanged over the
// broker and the consumer that records them in the audit log.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/lodging-listings/internal/model"
)

// PropertyQueueName is the durable queue lifecycle events are sent to.
const PropertyQueueName = "property.events"

type EventType string

const (
	PropertyCreated EventType = "property.created"
	PropertyUpdated EventType = "property.updated"
	PropertyDeleted EventType = "property.deleted"
)

// PropertyEvent is published after a property write has committed.  It
// carries enough to audit the change without reading the database.
type PropertyEvent struct {
	EventID    string    `json:"event_id"`
	Type       EventType `json:"type"`
	PropertyID uint64    `json:"property_id"`
	HostID     uint64    `json:"host_id,omitempty"`
	ActorID    uint64    `json:"actor_id"`
	ActorRole  string    `json:"actor_role,omitempty"`
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewPropertyEvent stamps a fresh id and the current time.  p may be nil
// for deletions.
func NewPropertyEvent(t EventType, propertyID uint64, p *model.Property, actor model.Caller) PropertyEvent {
	ev := PropertyEvent{
		EventID:    uuid.NewString(),
		Type:       t,
		PropertyID: propertyID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		OccurredAt: time.Now().UTC(),
	}
	if p != nil {
		ev.HostID = p.HostID
		ev.Name = p.Name
	}
	return ev
}
