package dispatcher

import "errors"

// Dispatcher errors.
var (
	// ErrNoHandler indicates nothing could perform an operation on the target.
	ErrNoHandler = errors.New("dispatcher: no handler for target")

	// ErrUnknownMethod indicates the target has no such method.
	ErrUnknownMethod = errors.New("dispatcher: unknown method")

	// ErrUnknownProperty indicates the target has no such property.
	ErrUnknownProperty = errors.New("dispatcher: unknown property")

	// ErrArgument indicates an argument could not be converted to the parameter type.
	ErrArgument = errors.New("dispatcher: bad argument")

	// ErrPanic indicates the handler panicked.
	ErrPanic = errors.New("dispatcher: handler panic")
)
