package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a script runs past its deadline.
	ErrExecutionTimeout = errors.New("lua execution timeout")
)

// ScriptError is a failure while running a chunk of Lua.
type ScriptError struct {
	// Chunk names the file or chunk that failed.
	Chunk string
	Err   error
}

func (e *ScriptError) Error() string {
	return "lua " + e.Chunk + ": " + e.Err.Error()
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}
