package domain

import (
	"errors"
	"fmt"
)

// OperationError is a failure reported by a command implementation.
//
// It is rendered to the client as "<Code> <Message>" and never closes the
// connection. Code is the upper-case Redis error prefix (ERR, WRONGTYPE...);
// an empty Code renders as ERR.
type OperationError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	code := e.Code
	if code == "" {
		code = "ERR"
	}
	return code + " " + e.Message
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// Is matches another OperationError with the same code and message.
func (e *OperationError) Is(target error) bool {
	t, ok := target.(*OperationError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewOperationError creates an OperationError with the ERR prefix.
func NewOperationError(message string) *OperationError {
	return &OperationError{Code: "ERR", Message: message}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *OperationError) WithCause(cause error) *OperationError {
	return &OperationError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
	}
}

// IsOperationError reports whether err is or wraps an OperationError.
func IsOperationError(err error) bool {
	var oe *OperationError
	return errors.As(err, &oe)
}

// ============================================================================
// Command errors
// ============================================================================

var (
	// ErrNotInteger indicates a stored value or argument is not an integer.
	ErrNotInteger = NewOperationError("value is not an integer or out of range")

	// ErrNotFloat indicates a stored value or argument is not a float.
	ErrNotFloat = NewOperationError("value is not a valid float")

	// ErrSyntax indicates an invalid option combination.
	ErrSyntax = NewOperationError("syntax error")

	// ErrOverflow indicates an increment would overflow.
	ErrOverflow = NewOperationError("increment or decrement would overflow")

	// ErrNaN indicates a float increment produced NaN or Infinity.
	ErrNaN = NewOperationError("increment would produce NaN or Infinity")

	// ErrInvalidExpire indicates a non-positive or overflowing expire time.
	ErrInvalidExpire = NewOperationError("invalid expire time in 'set' command")

	// ErrDBIndex indicates SELECT was given an unsupported database.
	ErrDBIndex = NewOperationError("DB index is out of range")

	// ErrStorage indicates the backing store failed.
	ErrStorage = NewOperationError("storage error")
)

// ErrWrongArgs returns the arity error for a command.
func ErrWrongArgs(command string) *OperationError {
	return NewOperationError(fmt.Sprintf("wrong number of arguments for '%s' command", command))
}

// ErrInvalidExpireFor returns the invalid expire error naming a command.
func ErrInvalidExpireFor(command string) *OperationError {
	return NewOperationError(fmt.Sprintf("invalid expire time in '%s' command", command))
}

// ErrUnknownSubcommand returns the error for an unsupported subcommand.
func ErrUnknownSubcommand(command, sub string) *OperationError {
	return NewOperationError(fmt.Sprintf("unknown subcommand '%s'. Try %s HELP.", sub, command))
}
