package event

import (
	"sync/atomic"

	"github.com/dshills/undoredo/internal/event/topic"
)

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*Subscription)

// WithPriority sets the handler priority.
func WithPriority(p Priority) SubscriptionOption {
	return func(s *Subscription) {
		s.priority = p
	}
}

// WithOnce removes the subscription after its first successful delivery.
func WithOnce() SubscriptionOption {
	return func(s *Subscription) {
		s.once = true
	}
}

// Subscription is a handler registered for a topic pattern.
type Subscription struct {
	id       string
	pattern  topic.Topic
	handler  Handler
	priority Priority
	once     bool

	// seq orders subscriptions of equal priority by registration.
	seq uint64

	cancelled atomic.Bool
}

// ID returns the subscription ID.
func (s *Subscription) ID() string { return s.id }

// Pattern returns the topic pattern.
func (s *Subscription) Pattern() topic.Topic { return s.pattern }

// Priority returns the handler priority.
func (s *Subscription) Priority() Priority { return s.priority }

// Active reports whether the subscription still receives events.
func (s *Subscription) Active() bool { return !s.cancelled.Load() }
