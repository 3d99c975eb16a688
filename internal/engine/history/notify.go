package history

import "github.com/dshills/undoredo/internal/engine/variant"

// CommitListener is told when an action has been committed.
// name is the name of the entry that received the operations, which is the
// previous entry when the commit merged.
type CommitListener interface {
	ActionCommitted(name string)
}

// MethodListener is told about every method operation dispatched to a live target.
type MethodListener interface {
	MethodReplayed(target any, method string, args []variant.Value)
}

// PropertyListener is told about every property operation dispatched to a live target.
type PropertyListener interface {
	PropertyReplayed(target any, property string, value variant.Value)
}

// CommitFunc adapts a function to CommitListener.
type CommitFunc func(name string)

// ActionCommitted calls f.
func (f CommitFunc) ActionCommitted(name string) { f(name) }

// MethodFunc adapts a function to MethodListener.
type MethodFunc func(target any, method string, args []variant.Value)

// MethodReplayed calls f.
func (f MethodFunc) MethodReplayed(target any, method string, args []variant.Value) {
	f(target, method, args)
}

// PropertyFunc adapts a function to PropertyListener.
type PropertyFunc func(target any, property string, value variant.Value)

// PropertyReplayed calls f.
func (f PropertyFunc) PropertyReplayed(target any, property string, value variant.Value) {
	f(target, property, value)
}

// hub holds at most one listener per channel.
type hub struct {
	commit   CommitListener
	method   MethodListener
	property PropertyListener
}

// SetCommitListener registers the commit listener. nil clears it.
func (r *Recorder) SetCommitListener(l CommitListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hub.commit = l
}

// SetMethodListener registers the method replay listener. nil clears it.
func (r *Recorder) SetMethodListener(l MethodListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hub.method = l
}

// SetPropertyListener registers the property replay listener. nil clears it.
func (r *Recorder) SetPropertyListener(l PropertyListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hub.property = l
}

// SetListener registers l on every channel whose interface it implements,
// replacing whatever was there. It returns the number of channels taken.
func (r *Recorder) SetListener(l any) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	if c, ok := l.(CommitListener); ok {
		r.hub.commit = c
		n++
	}
	if m, ok := l.(MethodListener); ok {
		r.hub.method = m
		n++
	}
	if p, ok := l.(PropertyListener); ok {
		r.hub.property = p
		n++
	}
	return n
}
