// Package event provides a synchronous topic-based event bus.
//
// Events carry a hierarchical topic (see package topic), a typed payload and
// metadata:
//
//	ev := event.NewEvent(events.TopicActionCommitted, events.ActionCommitted{Name: "move"}, "history")
//	err := bus.Publish(ctx, ev)
//
// Subscribers register a Handler for a topic pattern and receive the event
// type-erased; PayloadOf recovers the payload:
//
//	bus.SubscribeFunc("history.**", func(ctx context.Context, e any) error {
//	    if p, ok := event.PayloadOf[events.ActionCommitted](e); ok {
//	        log.Println("committed", p.Name)
//	    }
//	    return nil
//	}, event.WithPriority(event.PriorityLow))
//
// Delivery happens on the publisher's goroutine, lowest priority value
// first, then in subscription order. A failing or panicking handler does
// not prevent delivery to the others.
package event
