package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrClosed indicates the application has been shut down.
	ErrClosed = errors.New("application closed")

	// ErrNoConfigFile indicates a reload or watch was requested without a config file.
	ErrNoConfigFile = errors.New("no config file")
)

// InitError represents a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// OperationError represents an error that occurred during a specific operation.
type OperationError struct {
	Op     string // operation name, e.g. "run", "dump"
	Target string // target of the operation, e.g. a script path
	Err    error
}

func (e *OperationError) Error() string {
	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
