package events

import (
	"github.com/dshills/undoredo/internal/engine/variant"
	"github.com/dshills/undoredo/internal/event/topic"
)

// History event topics.
const (
	// TopicActionCommitted is published after an action is committed or merged.
	TopicActionCommitted topic.Topic = "history.action.committed"

	// TopicMethodReplayed is published for every dispatched method call.
	TopicMethodReplayed topic.Topic = "history.method.replayed"

	// TopicPropertyReplayed is published for every dispatched property assignment.
	TopicPropertyReplayed topic.Topic = "history.property.replayed"
)

// ActionCommitted is published when a commit finishes.
type ActionCommitted struct {
	// Name is the name of the entry the commit produced or merged into.
	Name string

	// Version is the history version after the commit.
	Version uint64

	// Count is the number of actions in history after the commit.
	Count int
}

// MethodReplayed is published when a method operation is dispatched.
type MethodReplayed struct {
	Target any
	Method string
	Args   []variant.Value
}

// PropertyReplayed is published when a property operation is dispatched.
type PropertyReplayed struct {
	Target   any
	Property string
	Value    variant.Value
}
