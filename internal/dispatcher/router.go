package dispatcher

import (
	"fmt"
	"sync"
	"time"

	"github.com/dshills/undoredo/internal/engine/variant"
)

// MethodCaller is implemented by targets that perform their own method calls.
type MethodCaller interface {
	CallMethod(method string, args []variant.Value) error
}

// PropertySetter is implemented by targets that assign their own properties.
type PropertySetter interface {
	SetProperty(property string, value variant.Value) error
}

// Performer performs operations on arbitrary targets.
type Performer interface {
	CallMethod(target any, method string, args []variant.Value) error
	SetProperty(target any, property string, value variant.Value) error
}

// Handler is a Performer for the targets it claims.
type Handler interface {
	Performer
	CanHandle(target any) bool
}

// Router routes operations to the first performer able to handle the target.
// It is safe for concurrent use.
type Router struct {
	mu sync.RWMutex

	handlers []Handler

	// Fallback performer for unclaimed targets
	fallback Performer

	metrics *Metrics
}

// NewRouter creates a router with the Reflect fallback.
func NewRouter() *Router {
	return &Router{
		fallback: Reflect{},
		metrics:  NewMetrics(),
	}
}

// Register adds a handler. Handlers are consulted in registration order.
func (r *Router) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
}

// SetFallback sets the performer for targets no handler claims.
// A nil fallback makes such targets fail with ErrNoHandler.
func (r *Router) SetFallback(p Performer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = p
}

// Metrics returns the router's dispatch statistics.
func (r *Router) Metrics() *Metrics {
	return r.metrics
}

// Route returns the performer for target, or nil.
func (r *Router) Route(target any) Performer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.handlers {
		if h.CanHandle(target) {
			return h
		}
	}
	return r.fallback
}

// CallMethod calls method on target.
func (r *Router) CallMethod(target any, method string, args []variant.Value) error {
	return r.run(method, func() error {
		if mc, ok := target.(MethodCaller); ok {
			return mc.CallMethod(method, args)
		}
		p := r.Route(target)
		if p == nil {
			return fmt.Errorf("%w: %T", ErrNoHandler, target)
		}
		return p.CallMethod(target, method, args)
	})
}

// SetProperty assigns property on target.
func (r *Router) SetProperty(target any, property string, value variant.Value) error {
	return r.run(property, func() error {
		if ps, ok := target.(PropertySetter); ok {
			return ps.SetProperty(property, value)
		}
		p := r.Route(target)
		if p == nil {
			return fmt.Errorf("%w: %T", ErrNoHandler, target)
		}
		return p.SetProperty(target, property, value)
	})
}

// run executes fn with panic recovery and records metrics.
func (r *Router) run(name string, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %s: %v", ErrPanic, name, rec)
			r.metrics.RecordPanic(name)
		}
		r.metrics.RecordDispatch(name, time.Since(start), err)
	}()
	return fn()
}
