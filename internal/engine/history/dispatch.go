package history

import (
	"fmt"

	"github.com/dshills/undoredo/internal/engine/variant"
)

// Dispatcher performs recorded operations on live objects.
// Errors are logged by the recorder and never stop a replay.
type Dispatcher interface {
	// CallMethod invokes method on target with the bound arguments.
	CallMethod(target any, method string, args []variant.Value) error

	// SetProperty assigns value to property on target.
	SetProperty(target any, property string, value variant.Value) error
}

// replay runs ops through the dispatcher, backwards when reverse is set.
// It must be called without r.mu held: dispatched code may call back into
// the recorder.
func (r *Recorder) replay(ops []Operation, reverse bool, phase string) {
	if len(ops) == 0 {
		return
	}

	r.mu.Lock()
	listeners := r.hub
	r.mu.Unlock()

	n := len(ops)
	for i := 0; i < n; i++ {
		op := ops[i]
		if reverse {
			op = ops[n-1-i]
		}
		r.dispatch(op, listeners, phase)
	}
}

// dispatch performs a single operation. Stale targets are skipped and
// dispatcher failures, including panics, are contained here.
func (r *Recorder) dispatch(op Operation, listeners hub, phase string) {
	if op.kind == OpReference {
		return
	}

	target, ok := r.objects.Resolve(op.target)
	if !ok {
		r.logger.Debug("skipping operation on stale target",
			"phase", phase,
			"target", op.target.String(),
			"op", op.name,
		)
		return
	}

	var err error
	switch op.kind {
	case OpMethod:
		err = r.safeCall(func() error {
			return r.dispatcher.CallMethod(target, op.name, variant.Clone(op.args))
		})
		if listeners.method != nil {
			r.notify("method", func() {
				listeners.method.MethodReplayed(target, op.name, variant.Clone(op.args))
			})
		}
	case OpProperty:
		value := variant.Nil()
		if len(op.args) > 0 {
			value = op.args[0]
		}
		err = r.safeCall(func() error {
			return r.dispatcher.SetProperty(target, op.name, value)
		})
		if listeners.property != nil {
			r.notify("property", func() {
				listeners.property.PropertyReplayed(target, op.name, value)
			})
		}
	}

	if err != nil {
		r.logger.Debug("operation failed",
			"phase", phase,
			"kind", op.kind.String(),
			"target", op.target.String(),
			"op", op.name,
			"error", err,
		)
	}
}

func (r *Recorder) safeCall(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("recovered panic: %v", rec)
		}
	}()
	return fn()
}

// notify runs a listener callback, containing panics.
func (r *Recorder) notify(channel string, fn func()) {
	err := r.safeCall(func() error {
		fn()
		return nil
	})
	if err != nil {
		r.logger.Error("listener failed", "channel", channel, "error", err)
	}
}
