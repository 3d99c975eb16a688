package event

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dshills/undoredo/internal/event/topic"
	"github.com/dshills/undoredo/internal/logging"
)

// Bus delivers events synchronously to every subscription whose pattern
// matches the event topic, in priority order. It is safe for concurrent use.
type Bus struct {
	mu   sync.RWMutex
	subs []*Subscription
	seq  uint64

	logger *slog.Logger

	// Stats
	eventsPublished  atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
	handlerPanics    atomic.Uint64
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithLogger sets the logger used for handler failures.
func WithLogger(l *slog.Logger) BusOption {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBus creates an event bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for events whose topic matches pattern.
func (b *Bus) Subscribe(pattern topic.Topic, handler Handler, opts ...SubscriptionOption) (*Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !pattern.IsValid() {
		return nil, ErrInvalidTopic
	}

	sub := &Subscription{
		id:       uuid.NewString(),
		pattern:  pattern,
		handler:  handler,
		priority: PriorityNormal,
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	sub.seq = b.seq
	b.subs = append(b.subs, sub)
	slices.SortStableFunc(b.subs, func(x, y *Subscription) int {
		if x.priority != y.priority {
			return int(x.priority - y.priority)
		}
		return int(int64(x.seq) - int64(y.seq))
	})
	return sub, nil
}

// SubscribeFunc is a convenience method for subscribing with a function handler.
func (b *Bus) SubscribeFunc(pattern topic.Topic, fn HandlerFunc, opts ...SubscriptionOption) (*Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	return b.Subscribe(pattern, fn, opts...)
}

// Unsubscribe removes a subscription.
func (b *Bus) Unsubscribe(sub *Subscription) error {
	if sub == nil || !b.remove(sub) {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (b *Bus) remove(sub *Subscription) bool {
	sub.cancelled.Store(true)

	b.mu.Lock()
	defer b.mu.Unlock()

	i := slices.Index(b.subs, sub)
	if i < 0 {
		return false
	}
	b.subs = slices.Delete(b.subs, i, i+1)
	return true
}

// Publish delivers event to every matching subscription before returning.
// Handler failures do not stop delivery; they are returned joined, each
// wrapped in a HandlerError.
func (b *Bus) Publish(ctx context.Context, event any) error {
	tp, ok := event.(TopicProvider)
	if !ok || tp.EventTopic() == "" {
		return ErrInvalidEvent
	}
	eventTopic := tp.EventTopic()
	b.eventsPublished.Add(1)

	b.mu.RLock()
	var matched []*Subscription
	for _, sub := range b.subs {
		if eventTopic.Matches(sub.pattern) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	var errs []error
	for _, sub := range matched {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if !sub.Active() {
			continue
		}

		err := b.deliver(ctx, sub, event)
		b.handlersExecuted.Add(1)
		if err != nil {
			b.handlerErrors.Add(1)
			b.logger.Warn("event handler failed",
				"topic", eventTopic.String(),
				"subscription", sub.id,
				"error", err,
			)
			errs = append(errs, &HandlerError{SubscriptionID: sub.id, Topic: eventTopic.String(), Err: err})
			continue
		}
		if sub.once {
			b.remove(sub)
		}
	}
	return errors.Join(errs...)
}

// deliver runs one handler with panic recovery.
func (b *Bus) deliver(ctx context.Context, sub *Subscription, event any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.handlerPanics.Add(1)
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return sub.handler.Handle(ctx, event)
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	n := len(b.subs)
	b.mu.RUnlock()

	return Stats{
		EventsPublished:  b.eventsPublished.Load(),
		HandlersExecuted: b.handlersExecuted.Load(),
		HandlerErrors:    b.handlerErrors.Load(),
		HandlerPanics:    b.handlerPanics.Load(),
		Subscribers:      n,
	}
}
