// Package history provides undo/redo for edits made to host objects.
//
// Edits are recorded as late-bound operations rather than state snapshots.
// An operation names a target object by handle, a method or property, and the
// bound arguments; replaying it asks a Dispatcher to perform the call. The
// caller always supplies both directions explicitly.
//
// # Actions
//
// Operations are grouped into actions, the unit of undo:
//
//	r := history.NewRecorder(registry, dispatcher, history.WithMaxActions(500))
//
//	r.CreateAction("Move", history.MergeDisable)
//	r.AddDoProperty(node, "x", variant.Int(10))
//	r.AddUndoProperty(node, "x", variant.Int(0))
//	r.CommitAction() // applies the do operations
//
//	r.Undo() // replays undo operations in reverse
//	r.Redo() // replays do operations forward
//
// CreateAction calls nest: an edit that triggers further edits while an
// action is open is folded into the outermost action.
//
// # Merging
//
// MergeEnds collapses consecutive commits with the same name into one history
// entry, which is how drags and typing become a single undo step. MergeAll
// collapses consecutive commits regardless of name.
//
// # Stale targets
//
// Targets are weak. If the object behind a handle has been destroyed when an
// action replays, its operations are skipped silently. Reference operations
// (AddDoReference) hold a strong reference instead, keeping shared resources
// alive for as long as the action stays in history.
//
// # Versioning
//
// Version increases on every commit and on ClearHistory, so callers can
// compare against a Checkpoint to decide whether a document is dirty.
package history
