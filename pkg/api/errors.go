package api

import "fmt"

// ErrorType represents the category of a request error.
type ErrorType string

const (
	// ErrorTypeTransportFailure means the transport could not dispatch.
	// No pending state is entered.
	ErrorTypeTransportFailure ErrorType = "transport_failure"
	// ErrorTypeDecodeFailure means a delivered payload could not be transformed.
	ErrorTypeDecodeFailure ErrorType = "decode_failure"
	// ErrorTypeCollisionRisk means no unused correlation id could be allocated.
	ErrorTypeCollisionRisk ErrorType = "collision_risk"
	// ErrorTypeInvalidRequest covers configuration and usage errors.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	// ErrorTypeAborted means a request observer cancelled the send.
	ErrorTypeAborted ErrorType = "aborted"
)

// Error is a structured request error.
type Error struct {
	Type    ErrorType
	ID      string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.ID != "" {
		msg = fmt.Sprintf("[%s] %s", e.ID, msg)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports type equality, so errors.Is(err, &Error{Type: ErrorTypeDecodeFailure})
// matches any decode failure.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*Error); ok {
		return e.Type == t.Type
	}
	return false
}

// NewTransportError creates an Error for a failed dispatch.
func NewTransportError(id, message string, cause error) *Error {
	return &Error{Type: ErrorTypeTransportFailure, ID: id, Message: message, Cause: cause}
}

// NewDecodeError creates an Error for a payload that could not be transformed.
func NewDecodeError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeDecodeFailure, Message: message, Cause: cause}
}

// NewCollisionError creates an Error for an exhausted id allocation.
func NewCollisionError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeCollisionRisk, Message: message, Cause: cause}
}

// NewInvalidRequestError creates an Error for invalid configuration or usage.
func NewInvalidRequestError(message string) *Error {
	return &Error{Type: ErrorTypeInvalidRequest, Message: message}
}

// NewAbortedError creates an Error for a send cancelled by a request observer.
func NewAbortedError(message string) *Error {
	return &Error{Type: ErrorTypeAborted, Message: message}
}
