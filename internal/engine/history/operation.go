package history

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/undoredo/internal/engine/object"
	"github.com/dshills/undoredo/internal/engine/variant"
)

// MaxArgs is the maximum number of bound arguments for a method operation.
const MaxArgs = 8

// OperationKind identifies what an operation does when replayed.
type OperationKind uint8

const (
	// OpMethod calls a method on the target.
	OpMethod OperationKind = iota
	// OpProperty assigns a property on the target.
	OpProperty
	// OpReference only holds a strong reference to the target.
	OpReference
)

// String returns the kind name.
func (k OperationKind) String() string {
	switch k {
	case OpMethod:
		return "method"
	case OpProperty:
		return "property"
	case OpReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Operation is one recorded, immutable command.
type Operation struct {
	kind   OperationKind
	target object.Handle
	name   string
	args   []variant.Value
	held   *object.Ref
}

// Kind returns the operation kind.
func (op Operation) Kind() OperationKind { return op.kind }

// Target returns the handle of the object the operation applies to.
func (op Operation) Target() object.Handle { return op.target }

// Name returns the method or property name. Empty for references.
func (op Operation) Name() string { return op.name }

// Args returns a copy of the bound arguments.
// A property operation has exactly one argument, the assigned value.
func (op Operation) Args() []variant.Value { return variant.Clone(op.args) }

// Arity returns the number of bound arguments.
func (op Operation) Arity() int { return len(op.args) }

// Holds reports whether the operation keeps a strong reference.
func (op Operation) Holds() bool { return op.held != nil }

// String renders the operation as e.g. `#1:1.move(1, 2)` or `#1:1.x = 10`.
func (op Operation) String() string {
	var b strings.Builder
	b.WriteString(op.target.String())
	switch op.kind {
	case OpMethod:
		b.WriteString(".")
		b.WriteString(op.name)
		b.WriteString("(")
		for i, a := range op.args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.String())
		}
		b.WriteString(")")
	case OpProperty:
		b.WriteString(".")
		b.WriteString(op.name)
		b.WriteString(" = ")
		if len(op.args) > 0 {
			b.WriteString(op.args[0].String())
		}
	case OpReference:
		b.WriteString(" (held)")
	}
	return b.String()
}

func (op Operation) release() {
	op.held.Release()
}

// action is one atomic unit of history.
type action struct {
	id      string
	name    string
	mode    MergeMode
	doOps   []Operation
	undoOps []Operation
	time    time.Time
	aborted bool

	// transient actions were opened during undo or redo. They are
	// performed on commit but never enter history.
	transient bool
}

func newAction(name string, mode MergeMode) *action {
	return &action{
		id:   uuid.NewString(),
		name: name,
		mode: mode,
	}
}

// release drops every strong reference the action holds.
func (a *action) release() {
	for _, op := range a.doOps {
		op.release()
	}
	for _, op := range a.undoOps {
		op.release()
	}
}

func releaseAll(actions []*action) {
	for _, a := range actions {
		a.release()
	}
}
