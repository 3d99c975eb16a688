package app

import (
	"context"
	"log/slog"

	"github.com/dshills/undoredo/internal/engine/history"
	"github.com/dshills/undoredo/internal/engine/variant"
	"github.com/dshills/undoredo/internal/event"
	"github.com/dshills/undoredo/internal/event/events"
)

// historyBridge forwards recorder notifications to the event bus.
type historyBridge struct {
	bus      *event.Bus
	recorder *history.Recorder
	logger   *slog.Logger
}

var (
	_ history.CommitListener   = (*historyBridge)(nil)
	_ history.MethodListener   = (*historyBridge)(nil)
	_ history.PropertyListener = (*historyBridge)(nil)
)

func (b *historyBridge) ActionCommitted(name string) {
	b.publish(event.NewEvent(events.TopicActionCommitted, events.ActionCommitted{
		Name:    name,
		Version: b.recorder.Version(),
		Count:   b.recorder.ActionCount(),
	}, "history"))
}

func (b *historyBridge) MethodReplayed(target any, method string, args []variant.Value) {
	b.publish(event.NewEvent(events.TopicMethodReplayed, events.MethodReplayed{
		Target: target,
		Method: method,
		Args:   variant.Clone(args),
	}, "history"))
}

func (b *historyBridge) PropertyReplayed(target any, property string, value variant.Value) {
	b.publish(event.NewEvent(events.TopicPropertyReplayed, events.PropertyReplayed{
		Target:   target,
		Property: property,
		Value:    value,
	}, "history"))
}

func (b *historyBridge) publish(ev any) {
	if err := b.bus.Publish(context.Background(), ev); err != nil {
		b.logger.Warn("event handler failed", "error", err)
	}
}
