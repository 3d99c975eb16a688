package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/undoredo/internal/event/topic"
)

// Event is a typed payload published on a topic.
// Events are immutable once created.
type Event[T any] struct {
	// Type is the hierarchical event type (e.g., "history.action.committed").
	Type topic.Topic

	// Payload contains the event-specific data.
	Payload T

	// Metadata contains standard event information.
	Metadata Metadata
}

// Metadata contains standard information attached to every event.
type Metadata struct {
	// ID is a unique identifier for this event instance.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies the component that published the event.
	Source string
}

// NewEvent creates a new event with the given type and payload.
func NewEvent[T any](eventType topic.Topic, payload T, source string) Event[T] {
	return Event[T]{
		Type:    eventType,
		Payload: payload,
		Metadata: Metadata{
			ID:        uuid.NewString(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// EventTopic returns the event's topic for type-erased handling.
func (e Event[T]) EventTopic() topic.Topic {
	return e.Type
}

// EventMetadata returns the event's metadata for type-erased handling.
func (e Event[T]) EventMetadata() Metadata {
	return e.Metadata
}

// TopicProvider is implemented by values the bus can route.
type TopicProvider interface {
	EventTopic() topic.Topic
}

// PayloadOf extracts the typed payload from a type-erased event.
func PayloadOf[T any](event any) (T, bool) {
	e, ok := event.(Event[T])
	if !ok {
		var zero T
		return zero, false
	}
	return e.Payload, true
}
