package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeIO            ErrorType = "IO"
	ErrTypeDecode        ErrorType = "DECODE"
	ErrTypeConfig        ErrorType = "CONFIG"
	ErrTypeFromStr       ErrorType = "FROM_STR"
	ErrTypeMalformedData ErrorType = "MALFORMED_DATA"
	ErrTypeValidation    ErrorType = "VALIDATION"
	ErrTypeNotFound      ErrorType = "NOT_FOUND"
	ErrTypeNetwork       ErrorType = "NETWORK"
	ErrTypeStorage       ErrorType = "STORAGE"
)

// Context keys carried by typed errors.
const (
	ContextKeyLine   = "line"
	ContextKeySource = "source"
	ContextKeyTarget = "target"
	ContextKeyKey    = "key"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewIOError wraps a read or write failure.
func NewIOError(message string, cause error) *AppError {
	return NewAppError(ErrTypeIO, message, cause)
}

// NewDecodeError reports bytes that are invalid for the configured encoding.
func NewDecodeError(encoding string, cause error) *AppError {
	return NewAppError(ErrTypeDecode, fmt.Sprintf("cannot decode input as %s", encoding), cause).
		WithContext(ContextKeyTarget, encoding)
}

// NewConfigError reports a missing or malformed configuration key.
func NewConfigError(key string) *AppError {
	return NewAppError(ErrTypeConfig, fmt.Sprintf("config error: `%s` is invalid or not found", key), nil).
		WithContext(ContextKeyKey, key)
}

// NewFromStrError reports text that does not parse into the target type.
func NewFromStrError(src, target string) *AppError {
	return NewAppError(ErrTypeFromStr, fmt.Sprintf("parse error: failed to parse `%s` as `%s`", src, target), nil).
		WithContext(ContextKeySource, src).
		WithContext(ContextKeyTarget, target)
}

// NewMalformedDataError attaches a 1-based line number to a row-level error.
func NewMalformedDataError(cause error, line int) *AppError {
	msg := fmt.Sprintf("malformed data (line: %d)", line)
	if cause != nil {
		msg = fmt.Sprintf("%s (line: %d)", Message(cause), line)
	}
	return NewAppError(ErrTypeMalformedData, msg, cause).WithContext(ContextKeyLine, line)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// IsType reports whether any AppError in err's chain has the given type.
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// LineNumber returns the line carried by a MalformedData error.
func LineNumber(err error) (int, bool) {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return 0, false
		}
		if appErr.Type == ErrTypeMalformedData {
			line, ok := appErr.Context[ContextKeyLine].(int)
			return line, ok
		}
		err = appErr.Cause
	}
	return 0, false
}

// Message returns the bare message of an AppError, or err.Error() otherwise.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
