package history

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/undoredo/internal/engine/object"
	"github.com/dshills/undoredo/internal/engine/variant"
	"github.com/dshills/undoredo/internal/logging"
)

// initialVersion is the version of a fresh recorder.
const initialVersion = 1

// State is the recording state of a Recorder.
type State int

const (
	// StateIdle means no action is open and nothing is being committed.
	StateIdle State = iota
	// StateRecording means an action is open.
	StateRecording
	// StateCommitting means a commit is replaying its do operations.
	StateCommitting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateCommitting:
		return "committing"
	default:
		return "unknown"
	}
}

// Recorder records actions and navigates their history.
//
// A Recorder is meant to be driven from a single editing goroutine. Its lock
// is never held while operations are dispatched or listeners run, so
// dispatched code may call back into the recorder, and read-only queries may
// come from other goroutines.
type Recorder struct {
	mu sync.Mutex

	objects    object.Tracker
	dispatcher Dispatcher
	logger     *slog.Logger
	clock      func() time.Time
	policy     mergePolicy
	strict     bool

	store   store
	version atomic.Uint64

	// Session state
	level      int
	pending    *action
	committing int
	replaying  int
	sequential bool

	hub hub
}

// NewRecorder creates a recorder that resolves targets through objects and
// performs operations through dispatcher.
func NewRecorder(objects object.Tracker, dispatcher Dispatcher, opts ...Option) *Recorder {
	if objects == nil {
		panic("history: nil object tracker")
	}
	if dispatcher == nil {
		panic("history: nil dispatcher")
	}

	r := &Recorder{
		objects:    objects,
		dispatcher: dispatcher,
		logger:     logging.NewNop(),
		clock:      time.Now,
		store:      newStore(DefaultMaxActions),
	}
	r.version.Store(initialVersion)

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateAction opens an action. If an action is already open the call only
// deepens the nesting, and everything recorded until the matching
// CommitAction belongs to the outer action.
//
// An action opened while Undo or Redo is replaying is a side effect of the
// replay: committing it performs its do operations but adds nothing to
// history and leaves the version unchanged.
func (r *Recorder) CreateAction(name string, mode MergeMode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.level == 0 {
		r.pending = newAction(name, mode)
		if r.replaying > 0 {
			r.pending.transient = true
		}
	}
	r.level++
}

// AddDoMethod records a method call to perform on commit and redo.
func (r *Recorder) AddDoMethod(target object.Handle, method string, args ...variant.Value) error {
	return r.addCall(false, OpMethod, target, method, args)
}

// AddUndoMethod records a method call to perform on undo.
func (r *Recorder) AddUndoMethod(target object.Handle, method string, args ...variant.Value) error {
	return r.addCall(true, OpMethod, target, method, args)
}

// AddDoProperty records a property assignment to perform on commit and redo.
func (r *Recorder) AddDoProperty(target object.Handle, property string, value variant.Value) error {
	return r.addCall(false, OpProperty, target, property, []variant.Value{value})
}

// AddUndoProperty records a property assignment to perform on undo.
func (r *Recorder) AddUndoProperty(target object.Handle, property string, value variant.Value) error {
	return r.addCall(true, OpProperty, target, property, []variant.Value{value})
}

// AddDoReference keeps target alive while the action is in history.
// Typically used for objects created by the action.
func (r *Recorder) AddDoReference(target object.Handle) error {
	return r.addReference(false, target)
}

// AddUndoReference keeps target alive while the action is in history.
// Typically used for objects removed by the action.
func (r *Recorder) AddUndoReference(target object.Handle) error {
	return r.addReference(true, target)
}

func (r *Recorder) addCall(undo bool, kind OperationKind, target object.Handle, name string, args []variant.Value) error {
	if kind == OpMethod && len(args) > MaxArgs {
		return r.misuse(fmt.Errorf("%w: %s takes %d, max %d", ErrTooManyArgs, name, len(args), MaxArgs))
	}

	r.mu.Lock()
	if r.level == 0 {
		r.mu.Unlock()
		return r.misuse(fmt.Errorf("%w: recording %s %q", ErrNoActionOpen, kind, name))
	}

	op := Operation{
		kind:   kind,
		target: target,
		name:   name,
		args:   variant.Clone(args),
	}
	if r.objects.IsShared(target) {
		op.held, _ = r.objects.Hold(target)
	}
	r.appendLocked(undo, op)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) addReference(undo bool, target object.Handle) error {
	r.mu.Lock()
	if r.level == 0 {
		r.mu.Unlock()
		return r.misuse(fmt.Errorf("%w: recording reference", ErrNoActionOpen))
	}

	ref, ok := r.objects.Hold(target)
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStaleTarget, target)
	}
	r.appendLocked(undo, Operation{kind: OpReference, target: target, held: ref})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) appendLocked(undo bool, op Operation) {
	if undo {
		r.pending.undoOps = append(r.pending.undoOps, op)
	} else {
		r.pending.doOps = append(r.pending.doOps, op)
	}
}

// CommitAction closes one nesting level. Closing the outermost level
// performs the action's do operations, places it in history (or merges it
// into the previous entry), bumps the version and notifies the commit listener.
func (r *Recorder) CommitAction() error {
	r.mu.Lock()
	if r.level == 0 {
		r.mu.Unlock()
		return r.misuse(fmt.Errorf("%w: commit without matching create", ErrNoActionOpen))
	}

	r.level--
	if r.level > 0 {
		r.mu.Unlock()
		return nil
	}

	a := r.pending
	r.pending = nil
	if a.aborted {
		r.mu.Unlock()
		a.release()
		r.logger.Debug("action discarded", "action", a.name)
		return nil
	}
	if a.transient {
		r.committing++
		r.mu.Unlock()

		r.replay(a.doOps, false, "side effect")

		r.mu.Lock()
		r.committing--
		r.checkLocked()
		r.mu.Unlock()

		a.release()
		r.logger.Debug("side effect performed outside history", "action", a.name)
		return nil
	}

	r.committing++
	r.mu.Unlock()

	r.replay(a.doOps, false, "commit")

	r.mu.Lock()
	r.committing--

	dropped := r.store.truncateRedo()
	if len(dropped) > 0 {
		r.sequential = false
	}

	now := r.clock()
	entry, merged := a, false
	if r.canMergeLocked(a, now) {
		entry = r.store.last()
		entry.doOps = append(entry.doOps, a.doOps...)
		entry.undoOps = append(entry.undoOps, a.undoOps...)
		entry.time = now
		merged = true
	} else {
		a.time = now
		r.store.push(a)
	}

	dropped = append(dropped, r.store.evictOverflow()...)
	r.sequential = true
	version := r.version.Add(1)
	index := r.store.current
	listener := r.hub.commit
	r.checkLocked()
	r.mu.Unlock()

	releaseAll(dropped)

	r.logger.Debug("action committed",
		"action", entry.name,
		"merged", merged,
		"index", index,
		"version", version,
		"dropped", len(dropped),
	)

	if listener != nil {
		r.notify("commit", func() { listener.ActionCommitted(entry.name) })
	}
	return nil
}

// canMergeLocked asks the merge policy about pending. Caller must hold r.mu.
func (r *Recorder) canMergeLocked(pending *action, now time.Time) bool {
	if pending.mode == MergeDisable || r.store.len() == 0 {
		return false
	}
	if !r.store.atEnd() {
		// Truncation runs first, so the cursor must be on the last entry.
		r.violation(fmt.Errorf("%w: merge candidate is not the active end (current %d, len %d)",
			ErrInvariant, r.store.current, r.store.len()))
		return false
	}
	return r.policy.allows(r.store.last(), pending, r.sequential, now)
}

// AbortAction closes one nesting level without committing. An abort at any
// level marks the whole outer action: when its outermost level closes,
// through AbortAction or CommitAction, nothing is performed and history is
// unchanged.
func (r *Recorder) AbortAction() error {
	r.mu.Lock()
	if r.level == 0 {
		r.mu.Unlock()
		return r.misuse(fmt.Errorf("%w: abort without matching create", ErrNoActionOpen))
	}

	r.pending.aborted = true
	r.level--
	if r.level > 0 {
		r.mu.Unlock()
		return nil
	}

	a := r.pending
	r.pending = nil
	r.mu.Unlock()

	a.release()
	r.logger.Debug("action aborted", "action", a.name)
	return nil
}

// IsCommittingAction reports whether a commit is performing its operations.
func (r *Recorder) IsCommittingAction() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.committing > 0
}

// State returns the current recording state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.level > 0:
		return StateRecording
	case r.committing > 0:
		return StateCommitting
	default:
		return StateIdle
	}
}

// Undo reverts the current action by replaying its undo operations in
// reverse order. It returns false if there is nothing to undo, or if an
// action is open or a replay is in progress.
func (r *Recorder) Undo() bool {
	r.mu.Lock()
	if reason := r.blockedLocked(); reason != "" {
		r.mu.Unlock()
		r.logger.Warn("undo refused", "reason", reason)
		return false
	}
	if !r.store.canUndo() {
		r.mu.Unlock()
		return false
	}

	a := r.store.at(r.store.current)
	r.store.current--
	r.sequential = false
	r.replaying++
	ops := a.undoOps
	r.mu.Unlock()

	r.replay(ops, true, "undo")

	r.mu.Lock()
	r.replaying--
	r.checkLocked()
	r.mu.Unlock()

	r.logger.Debug("undo", "action", a.name)
	return true
}

// Redo re-applies the next action by replaying its do operations in order.
// It returns false if there is nothing to redo, or if an action is open or a
// replay is in progress.
func (r *Recorder) Redo() bool {
	r.mu.Lock()
	if reason := r.blockedLocked(); reason != "" {
		r.mu.Unlock()
		r.logger.Warn("redo refused", "reason", reason)
		return false
	}
	if !r.store.canRedo() {
		r.mu.Unlock()
		return false
	}

	r.store.current++
	a := r.store.at(r.store.current)
	r.sequential = false
	r.replaying++
	ops := a.doOps
	r.mu.Unlock()

	r.replay(ops, false, "redo")

	r.mu.Lock()
	r.replaying--
	r.checkLocked()
	r.mu.Unlock()

	r.logger.Debug("redo", "action", a.name)
	return true
}

// blockedLocked returns why navigation is not possible right now, or "".
func (r *Recorder) blockedLocked() string {
	switch {
	case r.level > 0:
		return "action open"
	case r.committing > 0:
		return "commit in progress"
	case r.replaying > 0:
		return "replay in progress"
	default:
		return ""
	}
}

// ClearHistory drops every action, releasing the references they held.
// The version is bumped unless increaseVersion is false.
func (r *Recorder) ClearHistory(increaseVersion bool) error {
	r.mu.Lock()
	if r.level > 0 {
		r.mu.Unlock()
		return r.misuse(fmt.Errorf("%w: clear history", ErrActionOpen))
	}
	if r.committing > 0 || r.replaying > 0 {
		r.mu.Unlock()
		return r.misuse(fmt.Errorf("%w: clear history", ErrReplaying))
	}

	dropped := r.store.clear()
	r.sequential = false
	if increaseVersion {
		r.version.Add(1)
	}
	r.mu.Unlock()

	releaseAll(dropped)
	r.logger.Debug("history cleared", "dropped", len(dropped), "version", r.version.Load())
	return nil
}

// HasUndo reports whether an applied action exists.
func (r *Recorder) HasUndo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.canUndo()
}

// HasRedo reports whether an undone action is available for redo.
func (r *Recorder) HasRedo() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.canRedo()
}

// CurrentActionName returns the name of the current action, or "".
func (r *Recorder) CurrentActionName() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a := r.store.at(r.store.current); a != nil {
		return a.name
	}
	return ""
}

// CurrentAction returns the index of the current action; -1 when nothing is applied.
func (r *Recorder) CurrentAction() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.current
}

// ActionCount returns the number of actions in history, including the redo tail.
func (r *Recorder) ActionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.len()
}

// Version returns the history version.
func (r *Recorder) Version() uint64 {
	return r.version.Load()
}

// MaxActions returns the history cap.
func (r *Recorder) MaxActions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.maxActions
}

// SetMaxActions changes the history cap, evicting entries if needed.
func (r *Recorder) SetMaxActions(n int) {
	if n < 1 {
		n = DefaultMaxActions
	}

	r.mu.Lock()
	r.store.maxActions = n
	dropped := r.store.evictOverflow()
	r.checkLocked()
	r.mu.Unlock()

	releaseAll(dropped)
}

// SetMergeWindow changes the merge time window. Zero removes the limit.
func (r *Recorder) SetMergeWindow(d time.Duration) {
	if d < 0 {
		d = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy.window = d
}

// misuse reports a programmer error.
func (r *Recorder) misuse(err error) error {
	r.logger.Error("history misuse", "error", err)
	if r.strict {
		panic(err)
	}
	return err
}

// violation reports an internal consistency error. Caller may hold r.mu.
func (r *Recorder) violation(err error) {
	r.logger.Error("history invariant violated", "error", err)
	if r.strict {
		panic(err)
	}
}

// checkLocked validates invariants. Caller must hold r.mu.
func (r *Recorder) checkLocked() {
	if err := r.store.check(); err != nil {
		r.violation(err)
	}
	if r.level < 0 || r.committing < 0 || r.replaying < 0 {
		r.violation(fmt.Errorf("%w: negative counter (level %d, committing %d, replaying %d)",
			ErrInvariant, r.level, r.committing, r.replaying))
	}
	if (r.level > 0) != (r.pending != nil) {
		r.violation(fmt.Errorf("%w: pending action does not match level %d", ErrInvariant, r.level))
	}
}
