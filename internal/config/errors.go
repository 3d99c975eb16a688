package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrFileNotFound indicates an explicitly named config file doesn't exist.
	ErrFileNotFound = errors.New("config file not found")

	// ErrValidationFailed is matched by every *ValidationError.
	ErrValidationFailed = errors.New("validation failed")

	// ErrDecode indicates the merged sources could not be decoded into Config.
	ErrDecode = errors.New("config decode failed")
)

// ValidationError describes a validation failure for a setting.
type ValidationError struct {
	// Path is the dot-separated setting path.
	Path string
	// Message describes the failure.
	Message string
	// Value is the rejected value.
	Value any
	// Code categorizes the failure.
	Code ValidationErrorCode
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (value: %v)", e.Path, e.Message, e.Value)
}

// Is makes errors.Is(err, ErrValidationFailed) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// ValidationErrorCode categorizes validation errors.
type ValidationErrorCode uint8

const (
	// ErrCodeOutOfRange indicates a numeric value is out of range.
	ErrCodeOutOfRange ValidationErrorCode = iota
	// ErrCodeInvalidEnum indicates the value is not in the allowed set.
	ErrCodeInvalidEnum
	// ErrCodeRequiredMissing indicates a required setting is empty.
	ErrCodeRequiredMissing
)

// String returns a human-readable name for the error code.
func (c ValidationErrorCode) String() string {
	switch c {
	case ErrCodeOutOfRange:
		return "out_of_range"
	case ErrCodeInvalidEnum:
		return "invalid_enum"
	case ErrCodeRequiredMissing:
		return "required_missing"
	default:
		return "unknown"
	}
}
