package history

import "errors"

// Errors returned by Recorder operations.
var (
	// ErrNoActionOpen is returned when recording or committing with no open action.
	ErrNoActionOpen = errors.New("no action is open")

	// ErrActionOpen is returned when history is restructured while an action is open.
	ErrActionOpen = errors.New("an action is still open")

	// ErrReplaying is returned when history is restructured during a replay.
	ErrReplaying = errors.New("history is replaying")

	// ErrTooManyArgs is returned when an operation exceeds MaxArgs arguments.
	ErrTooManyArgs = errors.New("too many arguments")

	// ErrStaleTarget is returned when a reference is recorded for a dead object.
	ErrStaleTarget = errors.New("target object no longer exists")

	// ErrInvariant reports an internal consistency violation.
	ErrInvariant = errors.New("history invariant violated")
)
