package history

// Scope provides a convenient way to record an action using defer.
// Usage:
//
//	func moveNode(r *Recorder, node object.Handle, from, to int64) {
//	    s := r.Scope("Move", MergeEnds)
//	    defer s.End()
//	    r.AddDoProperty(node, "x", variant.Int(to))
//	    r.AddUndoProperty(node, "x", variant.Int(from))
//	}
type Scope struct {
	recorder *Recorder
	active   bool
}

// Scope opens an action and returns a handle that closes it.
func (r *Recorder) Scope(name string, mode MergeMode) *Scope {
	r.CreateAction(name, mode)
	return &Scope{recorder: r, active: true}
}

// End commits the scope's action.
// Safe to call multiple times; only the first call has effect.
func (s *Scope) End() error {
	if !s.active {
		return nil
	}
	s.active = false
	return s.recorder.CommitAction()
}

// Abort discards the scope's action instead of committing it. A nested
// scope's Abort discards the enclosing action too.
// Safe to call multiple times; does nothing after End.
func (s *Scope) Abort() error {
	if !s.active {
		return nil
	}
	s.active = false
	return s.recorder.AbortAction()
}

// Transaction records fn's edits as one action.
// If fn returns an error or panics, the action is aborted.
func (r *Recorder) Transaction(name string, mode MergeMode, fn func() error) (err error) {
	s := r.Scope(name, mode)
	defer func() {
		if rec := recover(); rec != nil {
			_ = s.Abort()
			panic(rec)
		}
	}()

	if err := fn(); err != nil {
		_ = s.Abort()
		return err
	}
	return s.End()
}

// Checkpoint marks a point in history, e.g. the last save.
type Checkpoint struct {
	version uint64
	current int
}

// Version returns the version the checkpoint was taken at.
func (c Checkpoint) Version() uint64 { return c.version }

// Checkpoint records the current version and cursor.
func (r *Recorder) Checkpoint() Checkpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Checkpoint{version: r.version.Load(), current: r.store.current}
}

// Changed reports whether the document differs from cp. Any commit or clear
// since cp counts as a change; undo and redo count only while the cursor is
// away from where it was.
func (r *Recorder) Changed(cp Checkpoint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version.Load() != cp.version || r.store.current != cp.current
}
