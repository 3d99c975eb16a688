package history

import (
	"time"

	"github.com/dshills/undoredo/internal/engine/object"
	"github.com/dshills/undoredo/internal/engine/variant"
)

// OperationInfo is a read-only view of a recorded operation.
type OperationInfo struct {
	Kind   OperationKind
	Target object.Handle
	Name   string
	Args   []variant.Value
	Holds  bool
}

// ActionInfo is a read-only view of a history entry.
// Used for undo history panels and dumps.
type ActionInfo struct {
	ID      string
	Name    string
	DoOps   []OperationInfo
	UndoOps []OperationInfo
	Time    time.Time
}

// Snapshot captures the whole history at one version.
type Snapshot struct {
	Version    uint64
	Current    int
	MaxActions int
	Actions    []ActionInfo
}

func operationInfos(ops []Operation) []OperationInfo {
	out := make([]OperationInfo, len(ops))
	for i, op := range ops {
		out[i] = OperationInfo{
			Kind:   op.kind,
			Target: op.target,
			Name:   op.name,
			Args:   variant.Clone(op.args),
			Holds:  op.held != nil,
		}
	}
	return out
}

func (a *action) info() ActionInfo {
	return ActionInfo{
		ID:      a.id,
		Name:    a.name,
		DoOps:   operationInfos(a.doOps),
		UndoOps: operationInfos(a.undoOps),
		Time:    a.time,
	}
}

// Action returns the entry at index.
func (r *Recorder) Action(index int) (ActionInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := r.store.at(index)
	if a == nil {
		return ActionInfo{}, false
	}
	return a.info(), true
}

// Actions returns every entry, oldest first.
func (r *Recorder) Actions() []ActionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ActionInfo, r.store.len())
	for i, a := range r.store.actions {
		out[i] = a.info()
	}
	return out
}

// Snapshot returns the whole history and its cursor.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Version:    r.version.Load(),
		Current:    r.store.current,
		MaxActions: r.store.maxActions,
		Actions:    make([]ActionInfo, r.store.len()),
	}
	for i, a := range r.store.actions {
		snap.Actions[i] = a.info()
	}
	return snap
}

// Map renders the operation as a generic key-value tree.
func (o OperationInfo) Map() map[string]any {
	args := make([]any, len(o.Args))
	for i, a := range o.Args {
		args[i] = a.Export()
	}
	return map[string]any{
		"type":   o.Kind.String(),
		"object": o.Target.String(),
		"name":   o.Name,
		"args":   args,
		"resref": o.Holds,
	}
}

// Map renders the action as a generic key-value tree.
func (a ActionInfo) Map() map[string]any {
	do := make([]any, len(a.DoOps))
	for i, op := range a.DoOps {
		do[i] = op.Map()
	}
	undo := make([]any, len(a.UndoOps))
	for i, op := range a.UndoOps {
		undo[i] = op.Map()
	}
	return map[string]any{
		"id":              a.ID,
		"name":            a.Name,
		"redo_operations": do,
		"undo_operations": undo,
		"time":            a.Time.UTC().Format(time.RFC3339Nano),
	}
}

// Map renders the snapshot as a generic key-value tree.
func (s Snapshot) Map() map[string]any {
	actions := make([]any, len(s.Actions))
	for i, a := range s.Actions {
		actions[i] = a.Map()
	}
	return map[string]any{
		"version":        s.Version,
		"current_action": s.Current,
		"max_actions":    s.MaxActions,
		"actions":        actions,
	}
}
