package clamd

import (
	"errors"
	"fmt"
)

// Error codes for machine-readable error classification.
const (
	CodeConnection   = "connection_error"
	CodeTimeout      = "timeout"
	CodeIO           = "io_error"
	CodeProtocol     = "protocol_error"
	CodeEncode       = "encode_error"
	CodeValidation   = "validation_error"
	CodeBufferTooBig = "buffer_too_long"
)

// Error is the base error type for all client errors.
type Error struct {
	// Code is a machine-readable error code.
	Code string
	// Message is a human-readable error description.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns the human-readable error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewConnectionError creates an error indicating the daemon endpoint is
// unreachable, refused the connection, or could not be resolved.
func NewConnectionError(msg string, cause error) *Error {
	return &Error{
		Code:    CodeConnection,
		Message: msg,
		Cause:   cause,
	}
}

// NewTimeoutError creates an error indicating the configured window elapsed
// before the daemon answered.
func NewTimeoutError(msg string, cause error) *Error {
	return &Error{
		Code:    CodeTimeout,
		Message: msg,
		Cause:   cause,
	}
}

// NewIOError creates an error indicating a read or write failed
// mid-operation on an established connection.
func NewIOError(msg string, cause error) *Error {
	return &Error{
		Code:    CodeIO,
		Message: msg,
		Cause:   cause,
	}
}

// NewProtocolError creates an error indicating the daemon's response does
// not parse under any known grammar.
func NewProtocolError(msg string, cause error) *Error {
	return &Error{
		Code:    CodeProtocol,
		Message: msg,
		Cause:   cause,
	}
}

// NewEncodeError creates an error indicating a caller-supplied command or
// argument contains protocol-reserved bytes and was never transmitted.
func NewEncodeError(msg string, cause error) *Error {
	return &Error{
		Code:    CodeEncode,
		Message: msg,
		Cause:   cause,
	}
}

// NewValidationError creates an error indicating invalid client input, such
// as a malformed daemon address.
func NewValidationError(msg string, cause error) *Error {
	return &Error{
		Code:    CodeValidation,
		Message: msg,
		Cause:   cause,
	}
}

// NewBufferTooLongError creates an error indicating the daemon rejected an
// INSTREAM upload for exceeding its configured StreamMaxLength.
func NewBufferTooLongError(msg string, cause error) *Error {
	return &Error{
		Code:    CodeBufferTooBig,
		Message: msg,
		Cause:   cause,
	}
}

// IsConnectionError reports whether err is or wraps a connection error.
func IsConnectionError(err error) bool {
	return hasCode(err, CodeConnection)
}

// IsTimeoutError reports whether err is or wraps a timeout error.
func IsTimeoutError(err error) bool {
	return hasCode(err, CodeTimeout)
}

// IsIOError reports whether err is or wraps a mid-operation I/O error.
func IsIOError(err error) bool {
	return hasCode(err, CodeIO)
}

// IsProtocolError reports whether err is or wraps a protocol error.
func IsProtocolError(err error) bool {
	return hasCode(err, CodeProtocol)
}

// IsEncodeError reports whether err is or wraps an encode error.
func IsEncodeError(err error) bool {
	return hasCode(err, CodeEncode)
}

// IsValidationError reports whether err is or wraps a validation error.
func IsValidationError(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsBufferTooLong reports whether err is or wraps the daemon's INSTREAM
// size-limit rejection.
func IsBufferTooLong(err error) bool {
	return hasCode(err, CodeBufferTooBig)
}

func hasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
