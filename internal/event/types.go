package event

import "context"

// Priority determines handler execution order.
// Lower values execute first.
type Priority int

const (
	// PriorityHigh is for handlers that keep state in sync.
	PriorityHigh Priority = 100

	// PriorityNormal is the default priority.
	PriorityNormal Priority = 200

	// PriorityLow is for metrics and logging handlers that run last.
	PriorityLow Priority = 300
)

// Handler is the interface for event handlers.
type Handler interface {
	// Handle processes an event.
	// The event parameter is type-erased; handlers should type-assert.
	Handle(ctx context.Context, event any) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, event any) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, event any) error {
	return f(ctx, event)
}

// Stats contains bus statistics.
type Stats struct {
	EventsPublished  uint64
	HandlersExecuted uint64
	HandlerErrors    uint64
	HandlerPanics    uint64
	Subscribers      int
}
